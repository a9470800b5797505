// Package displaylist defines the DisplayItem drawing commands a
// BrowsingContext emits after a layout pass, and the RenderList that
// batches them for a render backend to consume.
package displaylist

import "tabengine/geom"

// Kind discriminates the variants of DisplayItem.
type Kind int

const (
	KindClear Kind = iota
	KindRect
	KindTextRun
)

func (k Kind) String() string {
	switch k {
	case KindClear:
		return "Clear"
	case KindRect:
		return "Rect"
	case KindTextRun:
		return "TextRun"
	default:
		return "Unknown"
	}
}

// Rect is an axis-aligned rectangle in viewport-local coordinates.
type Rect struct {
	X, Y, Width, Height float32
}

// DisplayItem is a tagged union of the drawable primitives a backend must
// understand. Only the fields relevant to Kind are meaningful.
type DisplayItem struct {
	Kind Kind

	// Clear
	Background geom.Color

	// Rect
	Bounds Rect
	Color  geom.Color

	// TextRun
	Text     string
	Position [2]float32
	Size     float32
	MaxWidth *float32
}

// Clear builds a Clear item.
func Clear(background geom.Color) DisplayItem {
	return DisplayItem{Kind: KindClear, Background: background}
}

// NewRect builds a Rect item.
func NewRect(bounds Rect, color geom.Color) DisplayItem {
	return DisplayItem{Kind: KindRect, Bounds: bounds, Color: color}
}

// TextRun builds a TextRun item. maxWidth is optional; pass nil for
// unconstrained text.
func TextRun(text string, x, y, size float32, color geom.Color, maxWidth *float32) DisplayItem {
	return DisplayItem{
		Kind:     KindTextRun,
		Text:     text,
		Position: [2]float32{x, y},
		Size:     size,
		Color:    color,
		MaxWidth: maxWidth,
	}
}

// RenderList is an ordered batch of DisplayItems produced by one layout
// pass. It is the unit handed from a BrowsingContext to a RenderBackend.
type RenderList struct {
	items []DisplayItem
}

// New returns an empty RenderList.
func New() *RenderList {
	return &RenderList{}
}

// Add appends an arbitrary DisplayItem.
func (l *RenderList) Add(item DisplayItem) {
	l.items = append(l.items, item)
}

// PushClear appends a Clear item.
func (l *RenderList) PushClear(background geom.Color) {
	l.Add(Clear(background))
}

// PushRect appends a Rect item.
func (l *RenderList) PushRect(bounds Rect, color geom.Color) {
	l.Add(NewRect(bounds, color))
}

// PushText appends a TextRun item.
func (l *RenderList) PushText(text string, x, y, size float32, color geom.Color, maxWidth *float32) {
	l.Add(TextRun(text, x, y, size, color, maxWidth))
}

// Items returns the underlying slice of items, in emission order.
func (l *RenderList) Items() []DisplayItem {
	return l.items
}

// Len reports the number of items in the list.
func (l *RenderList) Len() int {
	return len(l.items)
}

// Reset clears the list for reuse, retaining the backing array.
func (l *RenderList) Reset() {
	l.items = l.items[:0]
}

// Bounds returns the smallest rectangle enclosing every Rect and TextRun
// item's footprint, and false if the list contains no such item. Clear
// items do not contribute: they cover the whole surface by definition.
func (l *RenderList) Bounds() (Rect, bool) {
	var (
		minX, minY = float32(0), float32(0)
		maxX, maxY = float32(0), float32(0)
		found      bool
	)
	grow := func(x0, y0, x1, y1 float32) {
		if !found {
			minX, minY, maxX, maxY = x0, y0, x1, y1
			found = true
			return
		}
		if x0 < minX {
			minX = x0
		}
		if y0 < minY {
			minY = y0
		}
		if x1 > maxX {
			maxX = x1
		}
		if y1 > maxY {
			maxY = y1
		}
	}
	for _, item := range l.items {
		switch item.Kind {
		case KindRect:
			grow(item.Bounds.X, item.Bounds.Y, item.Bounds.X+item.Bounds.Width, item.Bounds.Y+item.Bounds.Height)
		case KindTextRun:
			w := item.Size * float32(len(item.Text)) * 0.6
			if item.MaxWidth != nil && w > *item.MaxWidth {
				w = *item.MaxWidth
			}
			grow(item.Position[0], item.Position[1], item.Position[0]+w, item.Position[1]+item.Size)
		}
	}
	if !found {
		return Rect{}, false
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}
