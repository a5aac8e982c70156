// Package simplify reduces a raw Figma document tree into a compact,
// self-consistent design representation. The output has three parts:
// flat document metadata, an ordered forest of reduced nodes, and a
// deduplicated table of shared style values (globalVars) that two or
// more nodes reference by key. Simplification is pure computation with
// no I/O, deterministic for identical input, and safe to run
// concurrently on independent trees.
package simplify

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Weavy-AI/figma-mcp-server/pkg/figma"
)

// Design is the simplified output value: document metadata, a reduced
// node forest preserving the document's paint order, and the shared
// style table referenced by node style IDs.
type Design struct {
	Metadata   Metadata   `yaml:"metadata" json:"metadata"`
	Nodes      []*Node    `yaml:"nodes" json:"nodes"`
	GlobalVars GlobalVars `yaml:"globalVars" json:"globalVars"`
}

// Metadata holds document-level scalar facts plus the requested scope.
// NodeID and Depth are only set when the caller scoped the extraction.
type Metadata struct {
	Name         string `yaml:"name" json:"name"`
	LastModified string `yaml:"lastModified,omitempty" json:"lastModified,omitempty"`
	ThumbnailURL string `yaml:"thumbnailUrl,omitempty" json:"thumbnailUrl,omitempty"`
	NodeID       string `yaml:"nodeId,omitempty" json:"nodeId,omitempty"`
	Depth        int    `yaml:"depth,omitempty" json:"depth,omitempty"`
}

// GlobalVars is the deduplicated store of shared style values. Every
// StyleID referenced by a node in the forest resolves to an entry here,
// and every entry is referenced by at least one node.
type GlobalVars struct {
	Styles map[StyleID]any `yaml:"styles" json:"styles"`
}

// StyleID is a synthesized deduplication key into GlobalVars, of the
// form "<prefix>_<n>" where n is the order of first appearance during
// traversal. Keys are deterministic for identical input but carry no
// meaning across separate extractions.
type StyleID string

// Node is a reduced design node. Its attribute set is a fixed, closed
// vocabulary: unknown raw attributes are dropped during simplification,
// never passed through opaquely. Shared attributes (fills, strokes,
// effects, layout, text style) are held as references into GlobalVars.
type Node struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Type         string       `yaml:"type" json:"type"`
	BoundingBox  *BoundingBox `yaml:"boundingBox,omitempty" json:"boundingBox,omitempty"`
	Text         string       `yaml:"text,omitempty" json:"text,omitempty"`
	TextStyle    StyleID      `yaml:"textStyle,omitempty" json:"textStyle,omitempty"`
	Fills        StyleID      `yaml:"fills,omitempty" json:"fills,omitempty"`
	Strokes      StyleID      `yaml:"strokes,omitempty" json:"strokes,omitempty"`
	Effects      StyleID      `yaml:"effects,omitempty" json:"effects,omitempty"`
	Layout       StyleID      `yaml:"layout,omitempty" json:"layout,omitempty"`
	Opacity      *float64     `yaml:"opacity,omitempty" json:"opacity,omitempty"`
	BorderRadius string       `yaml:"borderRadius,omitempty" json:"borderRadius,omitempty"`
	ComponentID  string       `yaml:"componentId,omitempty" json:"componentId,omitempty"`
	Children     []*Node      `yaml:"children,omitempty" json:"children,omitempty"`
}

// BoundingBox is a node's absolute position and size on the canvas.
type BoundingBox struct {
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Paint is a simplified fill or stroke paint: a solid color as hex with
// optional opacity, an embedded image reference with its scale mode, or
// a gradient with its stops. Exactly the fields relevant to the paint
// type are set.
type Paint struct {
	Type     string         `yaml:"type" json:"type"`
	Hex      string         `yaml:"hex,omitempty" json:"hex,omitempty"`
	Opacity  *float64       `yaml:"opacity,omitempty" json:"opacity,omitempty"`
	ImageRef string         `yaml:"imageRef,omitempty" json:"imageRef,omitempty"`
	Scale    string         `yaml:"scaleMode,omitempty" json:"scaleMode,omitempty"`
	Stops    []GradientStop `yaml:"stops,omitempty" json:"stops,omitempty"`
}

// GradientStop is a single color stop along a gradient axis.
type GradientStop struct {
	Position float64 `yaml:"position" json:"position"`
	Hex      string  `yaml:"hex" json:"hex"`
}

// Stroke bundles stroke paints with the stroke weight.
type Stroke struct {
	Paints []Paint `yaml:"paints" json:"paints"`
	Weight string  `yaml:"weight,omitempty" json:"weight,omitempty"`
}

// Effect is a simplified visual effect: shadows keep their offset,
// blur radius, spread, and color; blur effects keep only the radius.
type Effect struct {
	Type   string  `yaml:"type" json:"type"`
	Offset *Offset `yaml:"offset,omitempty" json:"offset,omitempty"`
	Radius float64 `yaml:"radius,omitempty" json:"radius,omitempty"`
	Spread float64 `yaml:"spread,omitempty" json:"spread,omitempty"`
	Hex    string  `yaml:"hex,omitempty" json:"hex,omitempty"`
}

// Offset is a 2D shadow offset.
type Offset struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Layout is a flex-like summary of Figma auto-layout: direction, item
// alignment, gap, padding, wrapping, and sizing behavior.
type Layout struct {
	Mode           string `yaml:"mode" json:"mode"`
	JustifyContent string `yaml:"justifyContent,omitempty" json:"justifyContent,omitempty"`
	AlignItems     string `yaml:"alignItems,omitempty" json:"alignItems,omitempty"`
	Gap            string `yaml:"gap,omitempty" json:"gap,omitempty"`
	Padding        string `yaml:"padding,omitempty" json:"padding,omitempty"`
	Wrap           bool   `yaml:"wrap,omitempty" json:"wrap,omitempty"`
	SizingH        string `yaml:"sizingHorizontal,omitempty" json:"sizingHorizontal,omitempty"`
	SizingV        string `yaml:"sizingVertical,omitempty" json:"sizingVertical,omitempty"`
}

// TextStyle is a simplified type style: family, weight, size, line
// height, letter spacing, casing, and alignment.
type TextStyle struct {
	FontFamily    string  `yaml:"fontFamily,omitempty" json:"fontFamily,omitempty"`
	FontWeight    float64 `yaml:"fontWeight,omitempty" json:"fontWeight,omitempty"`
	FontSize      float64 `yaml:"fontSize,omitempty" json:"fontSize,omitempty"`
	LineHeight    string  `yaml:"lineHeight,omitempty" json:"lineHeight,omitempty"`
	LetterSpacing string  `yaml:"letterSpacing,omitempty" json:"letterSpacing,omitempty"`
	TextCase      string  `yaml:"textCase,omitempty" json:"textCase,omitempty"`
	TextAlign     string  `yaml:"textAlign,omitempty" json:"textAlign,omitempty"`
}

// Options configures a simplification pass.
type Options struct {
	// Depth limits traversal: a positive value keeps each root and at
	// most Depth levels below it. Zero means unlimited.
	Depth int
}

// Simplify reduces one or more raw tree roots into a Design. Traversal
// is depth-first and preserves sibling order throughout; invisible
// nodes are elided together with their subtrees without disturbing the
// order of the remaining siblings. Value-equal shared attributes across
// any number of nodes collapse into a single GlobalVars entry.
func Simplify(roots []figma.Node, meta Metadata, opts Options) (*Design, error) {
	table := newVarTable()

	nodes := make([]*Node, 0, len(roots))
	for i := range roots {
		node, err := table.convert(&roots[i], 0, opts.Depth)
		if err != nil {
			return nil, err
		}
		if node != nil {
			nodes = append(nodes, node)
		}
	}

	return &Design{
		Metadata:   meta,
		Nodes:      nodes,
		GlobalVars: GlobalVars{Styles: table.styles},
	}, nil
}

// varTable assigns deduplication keys during a single traversal.
// Entries are only ever created on behalf of a referencing node, so the
// table holds no orphans by construction.
type varTable struct {
	styles map[StyleID]any
	index  map[string]StyleID // canonical value encoding -> assigned key
	counts map[string]int     // per-prefix assignment counter
}

func newVarTable() *varTable {
	return &varTable{
		styles: make(map[StyleID]any),
		index:  make(map[string]StyleID),
		counts: make(map[string]int),
	}
}

// assign returns the key for a shared value, creating a new entry only
// when an equal value has not been seen before. Equality is equality of
// the value's canonical JSON encoding, which is deterministic for the
// closed set of variant types stored here.
func (t *varTable) assign(prefix string, value any) (StyleID, error) {
	canonical, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode %s value for deduplication: %w", prefix, err)
	}

	indexKey := prefix + ":" + string(canonical)
	if id, ok := t.index[indexKey]; ok {
		return id, nil
	}

	t.counts[prefix]++
	id := StyleID(fmt.Sprintf("%s_%d", prefix, t.counts[prefix]))
	t.index[indexKey] = id
	t.styles[id] = value
	return id, nil
}

// convert maps one raw node (and, depth permitting, its subtree) to a
// simplified node. Returns nil for invisible nodes. level counts how
// many levels below the root the node sits; maxDepth zero disables the
// bound.
func (t *varTable) convert(raw *figma.Node, level, maxDepth int) (*Node, error) {
	if !raw.IsVisible() {
		return nil, nil
	}

	node := &Node{
		ID:          raw.ID,
		Name:        raw.Name,
		Type:        raw.Type,
		ComponentID: raw.ComponentID,
	}

	if raw.AbsoluteBoundingBox != nil {
		node.BoundingBox = &BoundingBox{
			X:      raw.AbsoluteBoundingBox.X,
			Y:      raw.AbsoluteBoundingBox.Y,
			Width:  raw.AbsoluteBoundingBox.Width,
			Height: raw.AbsoluteBoundingBox.Height,
		}
	}

	if raw.Type == "TEXT" {
		node.Text = raw.Characters
	}
	if style := simplifyTextStyle(raw.Style); style != nil {
		id, err := t.assign("style", style)
		if err != nil {
			return nil, err
		}
		node.TextStyle = id
	}

	if fills := simplifyPaints(raw.Fills); len(fills) > 0 {
		id, err := t.assign("fill", fills)
		if err != nil {
			return nil, err
		}
		node.Fills = id
	}

	if strokes := simplifyPaints(raw.Strokes); len(strokes) > 0 {
		stroke := Stroke{Paints: strokes}
		if raw.StrokeWeight > 0 {
			stroke.Weight = px(raw.StrokeWeight)
		}
		id, err := t.assign("stroke", stroke)
		if err != nil {
			return nil, err
		}
		node.Strokes = id
	}

	if effects := simplifyEffects(raw.Effects); len(effects) > 0 {
		id, err := t.assign("effect", effects)
		if err != nil {
			return nil, err
		}
		node.Effects = id
	}

	if layout := simplifyLayout(raw); layout != nil {
		id, err := t.assign("layout", layout)
		if err != nil {
			return nil, err
		}
		node.Layout = id
	}

	if raw.Opacity != nil && *raw.Opacity < 1 {
		node.Opacity = raw.Opacity
	}
	node.BorderRadius = borderRadius(raw)

	if maxDepth == 0 || level < maxDepth {
		for i := range raw.Children {
			child, err := t.convert(&raw.Children[i], level+1, maxDepth)
			if err != nil {
				return nil, err
			}
			if child != nil {
				node.Children = append(node.Children, child)
			}
		}
	}

	return node, nil
}

// simplifyPaints reduces raw paints to the closed Paint vocabulary,
// keeping visible SOLID, IMAGE, and gradient paints and dropping
// everything else. Order is preserved (paints stack bottom to top).
func simplifyPaints(paints []figma.Paint) []Paint {
	var result []Paint
	for i := range paints {
		p := &paints[i]
		if !p.IsVisible() {
			continue
		}

		switch {
		case p.Type == "SOLID" && p.Color != nil:
			paint := Paint{Type: "SOLID", Hex: colorToHex(p.Color)}
			if opacity := p.PaintOpacity(); opacity < 1 {
				paint.Opacity = &opacity
			}
			result = append(result, paint)
		case p.Type == "IMAGE" && p.ImageRef != "":
			result = append(result, Paint{Type: "IMAGE", ImageRef: p.ImageRef, Scale: p.ScaleMode})
		case strings.HasPrefix(p.Type, "GRADIENT_"):
			paint := Paint{Type: p.Type}
			for _, stop := range p.GradientStops {
				paint.Stops = append(paint.Stops, GradientStop{
					Position: stop.Position,
					Hex:      colorToHex(&stop.Color),
				})
			}
			result = append(result, paint)
		}
	}
	return result
}

// simplifyEffects keeps visible shadow and blur effects and drops
// unrecognized effect types.
func simplifyEffects(effects []figma.Effect) []Effect {
	var result []Effect
	for i := range effects {
		e := &effects[i]
		if !e.IsVisible() {
			continue
		}

		switch e.Type {
		case "DROP_SHADOW", "INNER_SHADOW":
			effect := Effect{
				Type:   e.Type,
				Radius: e.Radius,
				Spread: e.Spread,
				Hex:    colorToHex(e.Color),
			}
			if e.Offset != nil {
				effect.Offset = &Offset{X: e.Offset.X, Y: e.Offset.Y}
			}
			result = append(result, effect)
		case "LAYER_BLUR", "BACKGROUND_BLUR":
			result = append(result, Effect{Type: e.Type, Radius: e.Radius})
		}
	}
	return result
}

// simplifyLayout summarizes auto-layout properties. Nodes without an
// auto-layout mode carry no layout attribute at all.
func simplifyLayout(raw *figma.Node) *Layout {
	if raw.LayoutMode == "" || raw.LayoutMode == "NONE" {
		return nil
	}

	layout := &Layout{
		Mode:           strings.ToLower(raw.LayoutMode),
		JustifyContent: alignment(raw.PrimaryAxisAlignItems),
		AlignItems:     alignment(raw.CounterAxisAlignItems),
		Wrap:           raw.LayoutWrap == "WRAP",
		SizingH:        strings.ToLower(raw.LayoutSizingHorizontal),
		SizingV:        strings.ToLower(raw.LayoutSizingVertical),
	}
	if raw.ItemSpacing > 0 {
		layout.Gap = px(raw.ItemSpacing)
	}
	if raw.PaddingTop > 0 || raw.PaddingRight > 0 || raw.PaddingBottom > 0 || raw.PaddingLeft > 0 {
		layout.Padding = fmt.Sprintf("%s %s %s %s",
			px(raw.PaddingTop), px(raw.PaddingRight), px(raw.PaddingBottom), px(raw.PaddingLeft))
	}
	return layout
}

// alignment maps Figma axis alignment values to their CSS-like names.
func alignment(value string) string {
	switch value {
	case "MIN", "":
		return ""
	case "MAX":
		return "flex-end"
	case "CENTER":
		return "center"
	case "SPACE_BETWEEN":
		return "space-between"
	default:
		return strings.ToLower(value)
	}
}

// simplifyTextStyle reduces a raw type style, returning nil when the
// style carries no information worth keeping.
func simplifyTextStyle(style *figma.TypeStyle) *TextStyle {
	if style == nil {
		return nil
	}

	result := &TextStyle{
		FontFamily: style.FontFamily,
		FontWeight: style.FontWeight,
		FontSize:   style.FontSize,
		TextCase:   strings.ToLower(style.TextCase),
		TextAlign:  strings.ToLower(style.TextAlignHorizontal),
	}
	if style.LineHeightPx > 0 {
		result.LineHeight = px(style.LineHeightPx)
	}
	if style.LetterSpacing != 0 {
		result.LetterSpacing = px(style.LetterSpacing)
	}
	// Horizontal LEFT is the default; dropping it keeps styles that
	// differ only in the default alignment value-equal.
	if result.TextAlign == "left" {
		result.TextAlign = ""
	}

	if result.FontFamily == "" && result.FontSize == 0 && result.FontWeight == 0 {
		return nil
	}
	return result
}

// borderRadius renders corner rounding as a CSS-like pixel string:
// a single value for uniform corners, four values otherwise.
func borderRadius(raw *figma.Node) string {
	if len(raw.RectangleCornerRadii) == 4 {
		r := raw.RectangleCornerRadii
		if r[0] == r[1] && r[1] == r[2] && r[2] == r[3] {
			if r[0] == 0 {
				return ""
			}
			return px(r[0])
		}
		return fmt.Sprintf("%s %s %s %s", px(r[0]), px(r[1]), px(r[2]), px(r[3]))
	}
	if raw.CornerRadius > 0 {
		return px(raw.CornerRadius)
	}
	return ""
}

// px formats a pixel quantity, trimming trailing zeros.
func px(value float64) string {
	return fmt.Sprintf("%gpx", value)
}

// colorToHex converts a Figma RGBA color (0-1 floats) to #RRGGBB form.
// Returns "#000000" for a nil color.
func colorToHex(color *figma.Color) string {
	if color == nil {
		return "#000000"
	}

	r := int(math.Round(color.R * 255))
	g := int(math.Round(color.G * 255))
	b := int(math.Round(color.B * 255))

	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}
