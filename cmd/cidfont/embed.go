package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/tdewolff/cidfont"
)

type Embed struct {
	Quiet    bool     `short:"q" desc:"Suppress output except for errors."`
	Verbose  bool     `short:"v" desc:"Show the finalize stages."`
	Force    bool     `desc:"Force overwriting existing files."`
	CIDToGID bool     `name:"cidtogid" desc:"Always write a CIDToGIDMap, fail if no characters are used."`
	Index    int      `short:"i" desc:"Index into font collection (used with TTC)."`
	Texts    []string `short:"t" name:"text" desc:"Text that is drawn with the font."`
	File     string   `short:"f" desc:"UTF-8 text file that is drawn with the font."`
	Seed     uint64   `desc:"Seed for the subset tag, random if zero."`
	Output   string   `short:"o" desc:"Output directory."`
	Input    string   `index:"0" desc:"Input font file."`
}

func (cmd *Embed) Run() error {
	setLevel(cmd.Quiet, cmd.Verbose)
	if cmd.Output == "" {
		cmd.Output = "."
	}

	b, err := readFont(cmd.Input)
	if err != nil {
		return err
	}

	options := &cidfont.Options{
		Index:            cmd.Index,
		ForceCIDToGIDMap: cmd.CIDToGID,
		Logger:           log,
	}
	if cmd.Seed != 0 {
		options.Rand = rand.New(rand.NewPCG(cmd.Seed, cmd.Seed))
	}
	font, err := cidfont.New(b, options)
	if err != nil {
		return fmt.Errorf("%v: %w", cmd.Input, err)
	}

	for _, text := range cmd.Texts {
		font.Record(text)
	}
	if cmd.File != "" {
		text, err := readFile(cmd.File)
		if err != nil {
			return err
		}
		font.Record(string(text))
	}
	if len(font.Codes()) == 0 {
		log.Warn("no text given, font subset contains only .notdef")
	}
	if err := font.Finalize(); err != nil {
		if errors.Is(err, cidfont.ErrNoUnicodeGlyph) {
			log.Error("use a font that covers all characters of the text")
		}
		return fmt.Errorf("%v: %w", cmd.Input, err)
	}
	embedding := font.Embedding()

	if err := os.MkdirAll(cmd.Output, 0755); err != nil {
		return err
	}
	files := []struct {
		name string
		data []byte
	}{
		{embedding.BaseFont + ".ttf", embedding.FontFile},
		{"tounicode.cmap", embedding.ToUnicode},
		{"widths.txt", []byte(fmt.Sprintf("/DW %d\n/W [%s]\n", embedding.DefaultWidth, cidfont.FormatWidths(embedding.Widths)))},
	}
	if !embedding.IsIdentity() {
		files = append(files, struct {
			name string
			data []byte
		}{"cidtogid.bin", embedding.CIDToGID})
	}
	for _, file := range files {
		if err := writeFile(filepath.Join(cmd.Output, file.name), file.data, cmd.Force); err != nil {
			return err
		}
	}

	if !cmd.Quiet {
		ratio := float64(len(embedding.FontFile)) / float64(len(b))
		fmt.Printf("%v:  %v characters,  %v => %v (%.1f%%)\n", embedding.BaseFont, len(embedding.Chars), formatBytes(uint64(len(b))), formatBytes(uint64(len(embedding.FontFile))), ratio*100.0)
		fmt.Printf("CIDSystemInfo: %v\n", embedding.SystemInfo)
		if embedding.IsIdentity() {
			fmt.Printf("CIDToGIDMap: Identity\n")
		} else {
			fmt.Printf("CIDToGIDMap: %v\n", formatBytes(uint64(len(embedding.CIDToGID))))
		}
	}
	return nil
}
