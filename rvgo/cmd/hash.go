package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/urfave/cli/v2"

	"github.com/rvsim/rvsim/rvgo/sim"
)

var (
	HashInputFlag = &cli.PathFlag{
		Name:      "input",
		Usage:     "path of a register snapshot (.res or .test_res)",
		TakesFile: true,
		EnvVars:   prefixEnvVars("HASH_INPUT"),
	}
	HashOutputFlag = &cli.PathFlag{
		Name:    "output",
		Usage:   "optional path to write the decoded registers and hash to, as JSON; '-' writes to stdout",
		EnvVars: prefixEnvVars("HASH_OUTPUT"),
	}
)

type HashOutput struct {
	Registers sim.Snapshot `json:"registers"`
	Hash      string       `json:"hash"`
}

func Hash(ctx *cli.Context) error {
	input, err := inputPath(ctx, HashInputFlag)
	if err != nil {
		return err
	}
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	snap, err := sim.ReadSnapshot(f)
	if err != nil {
		return fmt.Errorf("invalid input snapshot (%v): %w", input, err)
	}
	hash := snap.Hash()
	// no output path writes nothing
	if err := jsonutil.WriteJSON(ctx.Path(HashOutputFlag.Name), &HashOutput{Registers: snap, Hash: hash.Hex()}, OutFilePerm); err != nil {
		return fmt.Errorf("failed to write hash output: %w", err)
	}
	_, err = fmt.Fprintln(ctx.App.Writer, hash.Hex())
	return err
}

var HashCommand = &cli.Command{
	Name:        "hash",
	Usage:       "Print the Keccak-256 hash of a register snapshot",
	Description: "Print the Keccak-256 hash of a register snapshot, to compare runs without diffing files.",
	ArgsUsage:   "[input]",
	Action:      Hash,
	Flags: []cli.Flag{
		HashInputFlag,
		HashOutputFlag,
	},
}
