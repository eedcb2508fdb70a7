// Command puzzlectl inspects the puzzle geometry offline. It prints edge
// shapes, tile bounds and outline paths for a container size, cuts an image
// into masked per-tile PNGs, and validates theme preset files.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/jigsaw-studio/game/artwork"
	"github.com/wricardo/jigsaw-studio/game/config"
	"github.com/wricardo/jigsaw-studio/game/puzzle"
	"github.com/wricardo/jigsaw-studio/game/render"
	"github.com/wricardo/jigsaw-studio/game/service"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func containerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Value: 1000, Usage: "container width in pixels"},
		&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Value: 800, Usage: "container height in pixels"},
	}
}

// board returns the board size for the container flags of cmd.
func board(cmd *cli.Command) (int, int, error) {
	cw, ch := cmd.Int("width"), cmd.Int("height")
	if cw <= 0 || ch <= 0 {
		return 0, 0, fmt.Errorf("container must be positive, got %dx%d", cw, ch)
	}
	bw, bh := puzzle.BoardSize(cw, ch)
	return bw, bh, nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "puzzlectl",
		Usage: "inspect jigsaw geometry and theme presets",
		Commands: []*cli.Command{
			{
				Name:   "shapes",
				Usage:  "print the edge shape of every cell",
				Action: runShapes,
			},
			{
				Name:   "bounds",
				Usage:  "print the solved bounds of every tile",
				Flags:  containerFlags(),
				Action: runBounds,
			},
			{
				Name:      "outline",
				Usage:     "print the SVG outline of one tile",
				ArgsUsage: "<tile-id>",
				Flags:     containerFlags(),
				Action:    runOutline,
			},
			{
				Name:  "cut",
				Usage: "cut an image into masked tile PNGs",
				Flags: append(containerFlags(),
					&cli.StringFlag{Name: "image", Usage: "source PNG, JPEG or WebP file"},
					&cli.StringFlag{Name: "prompt", Usage: "draw procedural artwork for this prompt instead of reading a file"},
					&cli.StringFlag{Name: "out", Value: "tiles", Usage: "output directory"},
				),
				Action: runCut,
			},
			{
				Name:  "themes",
				Usage: "theme preset tools",
				Commands: []*cli.Command{
					{
						Name:      "validate",
						Usage:     "validate every *.json theme in a directory",
						ArgsUsage: "<dir>",
						Action:    runValidateThemes,
					},
					{
						Name:   "list",
						Usage:  "list built-in themes",
						Action: runListThemes,
					},
				},
			},
		},
	}
}

func edgeGlyph(v int) string {
	switch v {
	case puzzle.Tab:
		return "+"
	case puzzle.Blank:
		return "-"
	}
	return "0"
}

func runShapes(ctx context.Context, cmd *cli.Command) error {
	w := cmd.Root().Writer
	fmt.Fprintln(w, "edges as top/right/bottom/left (+ tab, - blank, 0 flat)")
	for row := 0; row < puzzle.Rows; row++ {
		cells := make([]string, 0, puzzle.Cols)
		for col := 0; col < puzzle.Cols; col++ {
			s := puzzle.ShapeOf(row, col)
			cells = append(cells, edgeGlyph(s.Top)+edgeGlyph(s.Right)+edgeGlyph(s.Bottom)+edgeGlyph(s.Left))
		}
		fmt.Fprintln(w, strings.Join(cells, " "))
	}
	return nil
}

func runBounds(ctx context.Context, cmd *cli.Command) error {
	bw, bh, err := board(cmd)
	if err != nil {
		return err
	}
	w := cmd.Root().Writer
	fmt.Fprintf(w, "board %dx%d\n", bw, bh)
	for _, t := range puzzle.CreateInitialLayout(bw, bh) {
		b := puzzle.BoundsOfTile(t, bw, bh)
		fmt.Fprintf(w, "tile %2d (r%d,c%d): x=%d y=%d w=%d h=%d\n", t.ID, t.Row, t.Col, b.X, b.Y, b.Width, b.Height)
	}
	return nil
}

func runOutline(ctx context.Context, cmd *cli.Command) error {
	bw, bh, err := board(cmd)
	if err != nil {
		return err
	}
	var id int
	if _, err := fmt.Sscan(cmd.Args().First(), &id); err != nil || id < 0 || id >= puzzle.TileCount {
		return fmt.Errorf("tile id must be 0..%d, got %q", puzzle.TileCount-1, cmd.Args().First())
	}
	t := puzzle.Tile{ID: id, Row: id / puzzle.Cols, Col: id % puzzle.Cols}
	fmt.Fprintln(cmd.Root().Writer, render.TilePath(t, bw, bh))
	return nil
}

func loadSource(path, prompt string) (image.Image, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return img, nil
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("either --image or --prompt is required")
	}
	return artwork.NewProcedural().Draw(prompt), nil
}

func runCut(ctx context.Context, cmd *cli.Command) error {
	bw, bh, err := board(cmd)
	if err != nil {
		return err
	}
	src, err := loadSource(cmd.String("image"), cmd.String("prompt"))
	if err != nil {
		return err
	}
	out := cmd.String("out")
	if err := os.MkdirAll(out, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}

	tiles := render.CutAll(src, bw, bh)
	ids := make([]int, 0, len(tiles))
	for id := range tiles {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		raw, err := render.EncodePNG(tiles[id])
		if err != nil {
			return err
		}
		name := filepath.Join(out, fmt.Sprintf("tile_%02d.png", id))
		if err := os.WriteFile(name, raw, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	fmt.Fprintf(cmd.Root().Writer, "wrote %d tiles for a %dx%d board to %s\n", len(ids), bw, bh, out)
	return nil
}

// validateThemeFile loads one preset file and checks it.
func validateThemeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var theme service.Theme
	if err := json.Unmarshal(data, &theme); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return config.ValidateTheme(&theme)
}

func validateThemes(w io.Writer, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no theme files in %s", dir)
	}

	invalid := 0
	for _, file := range files {
		if err := validateThemeFile(file); err != nil {
			invalid++
			fmt.Fprintf(w, "❌ %s: %v\n", filepath.Base(file), err)
			continue
		}
		fmt.Fprintf(w, "✅ %s\n", filepath.Base(file))
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d themes are invalid", invalid, len(files))
	}
	fmt.Fprintf(w, "All %d themes are valid\n", len(files))
	return nil
}

func runValidateThemes(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		dir = "themes"
	}
	return validateThemes(cmd.Root().Writer, dir)
}

func runListThemes(ctx context.Context, cmd *cli.Command) error {
	m, err := config.NewManager("")
	if err != nil {
		return err
	}
	themes, err := m.ListThemes()
	if err != nil {
		return err
	}
	for _, t := range themes {
		fmt.Fprintf(cmd.Root().Writer, "%-16s %s %s\n", t.ID, t.Icon, t.Name)
	}
	return nil
}
