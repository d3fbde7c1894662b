package board

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

//go:embed assets/*.svg
var markFiles embed.FS

type markCacheKey struct {
	cell Cell
	size int
}

var (
	markCache   = map[markCacheKey]image.Image{}
	markCacheMu sync.RWMutex
)

// RenderOptions controls board rendering.
type RenderOptions struct {
	// Highlight tints the cells of a winning line.
	Highlight *[3]int
	// Caption is drawn in a strip below the grid (room code, status).
	Caption string
}

const (
	cellSize      = 96
	gridLine      = 4
	boardCells    = 3
	captionHeight = 24
	imageSize     = cellSize*boardCells + gridLine*(boardCells+1)
)

var (
	bgColor        = color.RGBA{R: 0xF7, G: 0xF4, B: 0xEC, A: 0xFF}
	lineColor      = color.RGBA{R: 0x4A, G: 0x44, B: 0x3C, A: 0xFF}
	highlightColor = color.RGBA{R: 0xF3, G: 0xE3, B: 0x9B, A: 0xFF}
)

// RenderPNG draws the board as a PNG image.
func RenderPNG(b Board, opts RenderOptions) ([]byte, error) {
	height := imageSize
	if opts.Caption != "" {
		height += captionHeight
	}
	img := image.NewRGBA(image.Rect(0, 0, imageSize, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(bgColor), image.Point{}, draw.Src)

	if opts.Highlight != nil {
		for _, idx := range *opts.Highlight {
			if Valid(idx) {
				draw.Draw(img, cellRect(idx), image.NewUniform(highlightColor), image.Point{}, draw.Src)
			}
		}
	}

	// grid lines
	for i := 0; i <= boardCells; i++ {
		off := i * (cellSize + gridLine)
		horizontal := image.Rect(0, off, imageSize, off+gridLine)
		vertical := image.Rect(off, 0, off+gridLine, imageSize)
		draw.Draw(img, horizontal, image.NewUniform(lineColor), image.Point{}, draw.Src)
		draw.Draw(img, vertical, image.NewUniform(lineColor), image.Point{}, draw.Src)
	}

	for idx, c := range b {
		if c == Empty {
			continue
		}
		mark, err := renderMarkImage(c, cellSize)
		if err != nil {
			return nil, err
		}
		draw.Draw(img, cellRect(idx), mark, image.Point{}, draw.Over)
	}

	if opts.Caption != "" {
		drawer := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(lineColor),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(gridLine*2, imageSize+captionHeight-8),
		}
		drawer.DrawString(opts.Caption)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode board png: %w", err)
	}
	return buf.Bytes(), nil
}

func cellRect(idx int) image.Rectangle {
	row, col := idx/boardCells, idx%boardCells
	x := gridLine + col*(cellSize+gridLine)
	y := gridLine + row*(cellSize+gridLine)
	return image.Rect(x, y, x+cellSize, y+cellSize)
}

func renderMarkImage(c Cell, size int) (image.Image, error) {
	key := markCacheKey{cell: c, size: size}

	markCacheMu.RLock()
	if img, ok := markCache[key]; ok {
		markCacheMu.RUnlock()
		return img, nil
	}
	markCacheMu.RUnlock()

	name := markAssetName(c)
	data, err := markFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read mark asset %s: %w", name, err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse mark svg: %w", err)
	}

	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	markCacheMu.Lock()
	markCache[key] = img
	markCacheMu.Unlock()

	return img, nil
}

func markAssetName(c Cell) string {
	if c == X {
		return "assets/x.svg"
	}
	return "assets/o.svg"
}
