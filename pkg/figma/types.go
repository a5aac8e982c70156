package figma

// File represents the complete response from the Figma file API endpoint.
// It contains the file metadata, the document tree, published styles, and
// schema version information.
type File struct {
	Name          string           `json:"name"`
	LastModified  string           `json:"lastModified"`
	ThumbnailURL  string           `json:"thumbnailUrl"`
	Version       string           `json:"version"`
	Document      Node             `json:"document"`
	Styles        map[string]Style `json:"styles"`
	SchemaVersion int              `json:"schemaVersion"`
}

// NodesResponse represents the response from the Figma nodes API endpoint
// when fetching specific nodes. It contains file metadata and a map of node
// IDs to their corresponding NodeData. Figma reports an unknown node ID
// as a null entry, so the map values are pointers and a nil value means
// the node does not exist in the file.
type NodesResponse struct {
	Name         string               `json:"name"`
	LastModified string               `json:"lastModified"`
	ThumbnailURL string               `json:"thumbnailUrl"`
	Version      string               `json:"version"`
	Nodes        map[string]*NodeData `json:"nodes"`
}

// NodeData wraps a node with its document structure and optional
// component/style information. This is the structure returned for each
// requested node in a NodesResponse.
type NodeData struct {
	Document   Node                 `json:"document"`
	Components map[string]Component `json:"components,omitempty"`
	Styles     map[string]Style     `json:"styles,omitempty"`
}

// Component represents a Figma component definition with its metadata.
// Components are reusable design elements that can be instantiated
// throughout the file.
type Component struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Style represents a published Figma style with its basic properties.
// Styles can be colors (FILL), text styles (TEXT), effects (EFFECT), or
// layout grids (GRID).
type Style struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StyleType   string `json:"style_type"`
}

// ImageRendersResponse represents the response from the Figma image render
// endpoint (GET /v1/images/:key). Images maps each requested node ID to a
// temporary download URL; the URL is empty when Figma could not render the
// node.
type ImageRendersResponse struct {
	Err    string            `json:"err"`
	Images map[string]string `json:"images"`
}

// ImageFillsResponse represents the response from the Figma file images
// endpoint (GET /v1/files/:key/images), which resolves the imageRef values
// found in IMAGE paints to temporary download URLs.
type ImageFillsResponse struct {
	Error  bool           `json:"error"`
	Status int            `json:"status"`
	Meta   ImageFillsMeta `json:"meta"`
}

// ImageFillsMeta carries the imageRef -> download URL mapping of an
// ImageFillsResponse.
type ImageFillsMeta struct {
	Images map[string]string `json:"images"`
}

// Node represents a single element in the Figma document tree hierarchy.
// Nodes can be frames, groups, text, shapes, or other Figma elements, each
// with their own properties such as fills, strokes, effects, layout
// settings, and children nodes. Fields absent from the wire payload keep
// their zero value; unknown wire fields are ignored.
type Node struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Type                   string     `json:"type"`
	Visible                *bool      `json:"visible,omitempty"` // nil means visible
	Children               []Node     `json:"children,omitempty"`
	BackgroundColor        *Color     `json:"backgroundColor,omitempty"`
	Fills                  []Paint    `json:"fills,omitempty"`
	Strokes                []Paint    `json:"strokes,omitempty"`
	StrokeWeight           float64    `json:"strokeWeight,omitempty"`
	Opacity                *float64   `json:"opacity,omitempty"` // nil means fully opaque
	CornerRadius           float64    `json:"cornerRadius,omitempty"`
	RectangleCornerRadii   []float64  `json:"rectangleCornerRadii,omitempty"`
	Effects                []Effect   `json:"effects,omitempty"`
	Characters             string     `json:"characters,omitempty"`
	Style                  *TypeStyle `json:"style,omitempty"`
	AbsoluteBoundingBox    *Rectangle `json:"absoluteBoundingBox,omitempty"`
	ComponentID            string     `json:"componentId,omitempty"`
	LayoutMode             string     `json:"layoutMode,omitempty"`
	LayoutWrap             string     `json:"layoutWrap,omitempty"`
	PrimaryAxisAlignItems  string     `json:"primaryAxisAlignItems,omitempty"`
	CounterAxisAlignItems  string     `json:"counterAxisAlignItems,omitempty"`
	PrimaryAxisSizingMode  string     `json:"primaryAxisSizingMode,omitempty"`
	CounterAxisSizingMode  string     `json:"counterAxisSizingMode,omitempty"`
	LayoutSizingHorizontal string     `json:"layoutSizingHorizontal,omitempty"`
	LayoutSizingVertical   string     `json:"layoutSizingVertical,omitempty"`
	PaddingLeft            float64    `json:"paddingLeft,omitempty"`
	PaddingRight           float64    `json:"paddingRight,omitempty"`
	PaddingTop             float64    `json:"paddingTop,omitempty"`
	PaddingBottom          float64    `json:"paddingBottom,omitempty"`
	ItemSpacing            float64    `json:"itemSpacing,omitempty"`
}

// IsVisible reports whether the node is rendered. Figma omits the visible
// field for visible nodes, so only an explicit false hides a node.
func (n *Node) IsVisible() bool {
	return n.Visible == nil || *n.Visible
}

// Color represents an RGBA color with float values ranging from 0 to 1.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Paint represents a fill or stroke applied to a Figma node. It includes
// the paint type (SOLID, GRADIENT_LINEAR, IMAGE, ...), visibility, opacity,
// and either color information or an image reference.
type Paint struct {
	Type          string      `json:"type"`
	Visible       *bool       `json:"visible,omitempty"` // nil means visible
	Opacity       *float64    `json:"opacity,omitempty"` // nil means fully opaque
	Color         *Color      `json:"color,omitempty"`
	ImageRef      string      `json:"imageRef,omitempty"`
	ScaleMode     string      `json:"scaleMode,omitempty"`
	GradientStops []ColorStop `json:"gradientStops,omitempty"`
}

// IsVisible reports whether the paint is rendered; absent means visible.
func (p *Paint) IsVisible() bool {
	return p.Visible == nil || *p.Visible
}

// PaintOpacity returns the paint's opacity, defaulting to 1 when absent.
func (p *Paint) PaintOpacity() float64 {
	if p.Opacity == nil {
		return 1
	}
	return *p.Opacity
}

// ColorStop is a single stop in a gradient paint: a position along the
// gradient axis (0..1) and the color at that position.
type ColorStop struct {
	Position float64 `json:"position"`
	Color    Color   `json:"color"`
}

// Effect represents a visual effect applied to a Figma node such as drop
// shadows, inner shadows, or blur effects.
type Effect struct {
	Type    string  `json:"type"`
	Visible *bool   `json:"visible,omitempty"` // nil means visible
	Radius  float64 `json:"radius,omitempty"`
	Color   *Color  `json:"color,omitempty"`
	Offset  *Vector `json:"offset,omitempty"`
	Spread  float64 `json:"spread,omitempty"`
}

// IsVisible reports whether the effect is rendered; absent means visible.
func (e *Effect) IsVisible() bool {
	return e.Visible == nil || *e.Visible
}

// Vector represents a 2D coordinate or offset with X and Y values.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TypeStyle represents text styling properties from Figma: font family,
// weight, size, line height, letter spacing, casing, and alignment.
type TypeStyle struct {
	FontFamily          string  `json:"fontFamily"`
	FontPostScriptName  string  `json:"fontPostScriptName"`
	FontWeight          float64 `json:"fontWeight"`
	FontSize            float64 `json:"fontSize"`
	LineHeightPx        float64 `json:"lineHeightPx"`
	LineHeightPercent   float64 `json:"lineHeightPercent"`
	LetterSpacing       float64 `json:"letterSpacing"`
	TextCase            string  `json:"textCase,omitempty"`
	TextAlignHorizontal string  `json:"textAlignHorizontal"`
	TextAlignVertical   string  `json:"textAlignVertical"`
}

// Rectangle represents a bounding box with position (X, Y) and dimensions
// (Width, Height) in the Figma canvas coordinate space.
type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
