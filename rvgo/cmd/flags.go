package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
)

const envVarPrefix = "RVSIM"

func prefixEnvVars(name string) []string {
	return []string{envVarPrefix + "_" + name}
}

var OutFilePerm = os.FileMode(0o644)

// inputPath takes the path flag, or the first positional argument when the flag is unset.
func inputPath(ctx *cli.Context, flag *cli.PathFlag) (string, error) {
	path := ctx.Path(flag.Name)
	if path == "" {
		path = ctx.Args().First()
	}
	if path == "" {
		return "", fmt.Errorf("missing input file, set --%s or pass it as argument", flag.Name)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("invalid input file: %w", err)
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("input %q is not a regular file", path)
	}
	return path, nil
}

// baseName strips the directory and the last extension: "dir/t1.bin" becomes "t1".
func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
