package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/chazu/feeny/linker"
	"github.com/chazu/feeny/pkg/bytecode"
	"github.com/chazu/feeny/vm"
)

func newRunCommand(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <program>",
		Short: "Link (if needed) and run a bytecode file or linked image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(cmd, gf, args[0])
		},
	}
}

func newDisCommand(gf *globalFlags) *cobra.Command {
	var linked bool
	cmd := &cobra.Command{
		Use:   "dis <program>",
		Short: "Print the constant pool of a bytecode file, or its linked code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, gf); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if vm.IsImage(data) || linked {
				img, err := imageFromBytes(args[0], data)
				if err != nil {
					return err
				}
				fmt.Fprint(out, img.Listing())
				return nil
			}
			prog, err := bytecode.Decode(bytes.NewReader(data))
			if err != nil {
				return errors.WithMessage(err, args[0])
			}
			fmt.Fprint(out, prog.Disassemble())
			return nil
		},
	}
	cmd.Flags().BoolVar(&linked, "linked", false, "link first and print the linked code buffer")
	return cmd
}

func newLinkCommand(gf *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "link <program.bc>",
		Short: "Link a bytecode file and write a linked image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, gf); err != nil {
				return err
			}
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			data, err := vm.MarshalImage(img)
			if err != nil {
				return err
			}
			if output == "" {
				output = imagePath(args[0])
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return err
			}
			log.Infof("wrote %s (%d bytes, %d instructions)", output, len(data), len(img.Code))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "image path (default: program name with .fimg)")
	return cmd
}

// loadImage reads path and returns a linked image, linking bytecode files
// on the way.
func loadImage(path string) (*vm.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return imageFromBytes(path, data)
}

func imageFromBytes(path string, data []byte) (*vm.Image, error) {
	if vm.IsImage(data) {
		img, err := vm.UnmarshalImage(data)
		return img, errors.WithMessage(err, path)
	}
	prog, err := bytecode.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	img, err := linker.Link(prog)
	return img, errors.WithMessage(err, path)
}

// imagePath replaces the extension of a bytecode path with .fimg.
func imagePath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".fimg"
}
