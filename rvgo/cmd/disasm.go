package cmd

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/rvsim/rvsim/rvgo/sim"
)

var DisasmInputFlag = &cli.PathFlag{
	Name:      "input",
	Usage:     "path of the flat RV32I program image",
	TakesFile: true,
	EnvVars:   prefixEnvVars("DISASM_INPUT"),
}

// Disassemble writes one line per 4-byte word of image. A trailing partial word is zero-padded.
func Disassemble(w io.Writer, image []byte) error {
	bw := bufio.NewWriter(w)
	for addr := 0; addr < len(image); addr += 4 {
		var buf [4]byte
		copy(buf[:], image[addr:])
		word := binary.LittleEndian.Uint32(buf[:])
		if _, err := fmt.Fprintf(bw, "%08x: %08x  %s\n", addr, word, sim.Disassemble(word)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func Disasm(ctx *cli.Context) error {
	input, err := inputPath(ctx, DisasmInputFlag)
	if err != nil {
		return err
	}
	image, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read program image: %w", err)
	}
	return Disassemble(ctx.App.Writer, image)
}

var DisasmCommand = &cli.Command{
	Name:        "disasm",
	Usage:       "Disassemble an RV32I program image.",
	Description: "Print address, word and assembly for every 4-byte word of a flat RV32I program image. Undecodable words print as .word directives.",
	ArgsUsage:   "[input]",
	Action:      Disasm,
	Flags: []cli.Flag{
		DisasmInputFlag,
	},
}
