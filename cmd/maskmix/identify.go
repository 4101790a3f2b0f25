package main

import (
	"fmt"
	"strings"

	"github.com/setanarut/maskmix"
	"github.com/setanarut/maskmix/utils"
	"github.com/spf13/cobra"
)

func newIdentifyCmd() *cobra.Command {
	identifyCmd := &cobra.Command{
		Use:   "identify [mask-directory]",
		Short: "Inspect the masks of a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runIdentify,
	}
	identifyCmd.Flags().Int("colors", 3, "Dominant colors reported per mask")
	return identifyCmd
}

func runIdentify(cmd *cobra.Command, args []string) error {
	k, _ := cmd.Flags().GetInt("colors")
	masks, err := maskmix.LoadMasks(args[0])
	if err != nil {
		return err
	}
	w, h := masks.Size()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Directory:  %s\n", masks.Dir)
	fmt.Fprintf(out, "Dimensions: %d x %d\n", w, h)
	for _, m := range []struct {
		name string
		img  *maskmix.Raster
	}{{maskmix.MaskFileR, masks.R}, {maskmix.MaskFileG, masks.G}, {maskmix.MaskFileB, masks.B}} {
		palette := utils.ExtractPalette(m.img, k, utils.PaletteMethodDominantColor)
		if len(palette) == 0 {
			fmt.Fprintf(out, "  %s: fully transparent\n", m.name)
			continue
		}
		fmt.Fprintf(out, "  %s: %s\n", m.name, strings.Join(utils.HexCodes(palette), " "))
	}
	return nil
}
