package main

import (
	"fmt"

	"github.com/tdewolff/cidfont"
)

type Info struct {
	Index int    `short:"i" desc:"Font index for font collections"`
	Input string `index:"0" desc:"Input file"`
}

func (cmd *Info) Run() error {
	setLevel(false, false)

	b, err := readFont(cmd.Input)
	if err != nil {
		return err
	}
	sfnt, err := cidfont.ParseSFNT(b, cmd.Index)
	if err != nil {
		return fmt.Errorf("%v: %w", cmd.Input, err)
	}
	platformID, encodingID, format, err := sfnt.UnicodeEncoding()
	if err != nil {
		return fmt.Errorf("%v: %w", cmd.Input, err)
	}

	fmt.Printf("File: %s\n\n", cmd.Input)
	fmt.Printf("PostScript name: %s\n", sfnt.PostScriptName())
	fmt.Printf("Glyphs: %d\n", sfnt.NumGlyphs())
	fmt.Printf("Unicode cmap: platform=%d encoding=%d format=%d\n", platformID, encodingID, format)

	font, err := cidfont.New(b, &cidfont.Options{Index: cmd.Index, Logger: log})
	if err != nil {
		return fmt.Errorf("%v: %w", cmd.Input, err)
	}
	d := font.Descriptor()
	fmt.Printf("\nFont descriptor:\n")
	fmt.Printf("  Flags:       %d\n", d.Flags)
	fmt.Printf("  FontBBox:    [%d %d %d %d]\n", d.XMin, d.YMin, d.XMax, d.YMax)
	fmt.Printf("  ItalicAngle: %g\n", d.ItalicAngle)
	fmt.Printf("  Ascent:      %d\n", d.Ascent)
	fmt.Printf("  Descent:     %d\n", d.Descent)
	fmt.Printf("  CapHeight:   %d\n", d.CapHeight)
	fmt.Printf("  XHeight:     %d\n", d.XHeight)
	fmt.Printf("  StemV:       %d\n", d.StemV)
	fmt.Printf("  FontWeight:  %d\n", d.Weight)
	fmt.Printf("  FontStretch: %s\n", d.Stretch)
	fmt.Printf("  DW:          %d\n", font.DefaultWidth())
	return nil
}
