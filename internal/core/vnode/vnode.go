// Package vnode defines the immutable VNode value and the per-kind
// capability table the rest of the core consults instead of type-switching
// on widget kind throughout the commit, layout, and router packages.
package vnode

// Kind tags a VNode's widget variant.
type Kind int

const (
	KindUnknown Kind = iota

	// Containers.
	KindBox
	KindRow
	KindColumn
	KindGrid
	KindLayers
	KindField
	KindTabs
	KindModal
	KindLayer
	KindFocusZone
	KindFocusTrap
	KindSplitPane
	KindPanelGroup
	KindThemed
	KindErrorBoundary
	KindComposite

	// Leaves.
	KindText
	KindSpacer
	KindDivider
	KindRichText
	KindIcon

	// Interactive widgets.
	KindButton
	KindLink
	KindInput
	KindSlider
	KindSelect
	KindCheckbox
	KindRadioGroup
	KindDropdown
	KindVirtualList
	KindTable
	KindTree
	KindFilePicker
	KindFileTreeExplorer
	KindCommandPalette
	KindDiffViewer
	KindCodeEditor
	KindLogsConsole
	KindToolApprovalDialog
	KindToastContainer
)

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

var kindNames = map[Kind]string{
	KindBox:                "box",
	KindRow:                "row",
	KindColumn:             "column",
	KindGrid:               "grid",
	KindLayers:             "layers",
	KindField:              "field",
	KindTabs:               "tabs",
	KindModal:              "modal",
	KindLayer:              "layer",
	KindFocusZone:          "focus-zone",
	KindFocusTrap:          "focus-trap",
	KindSplitPane:          "split-pane",
	KindPanelGroup:         "panel-group",
	KindThemed:             "themed",
	KindErrorBoundary:      "error-boundary",
	KindComposite:          "composite",
	KindText:               "text",
	KindSpacer:             "spacer",
	KindDivider:            "divider",
	KindRichText:           "rich-text",
	KindIcon:               "icon",
	KindButton:             "button",
	KindLink:               "link",
	KindInput:              "input",
	KindSlider:             "slider",
	KindSelect:             "select",
	KindCheckbox:           "checkbox",
	KindRadioGroup:         "radio-group",
	KindDropdown:           "dropdown",
	KindVirtualList:        "virtual-list",
	KindTable:              "table",
	KindTree:               "tree",
	KindFilePicker:         "file-picker",
	KindFileTreeExplorer:   "file-tree-explorer",
	KindCommandPalette:     "command-palette",
	KindDiffViewer:         "diff-viewer",
	KindCodeEditor:         "code-editor",
	KindLogsConsole:        "logs-console",
	KindToolApprovalDialog: "tool-approval-dialog",
	KindToastContainer:     "toast-container",
}

// Protocol describes the capabilities the rest of the core must consult by
// kind rather than by ad hoc type assertion. It replaces the source's
// dynamic prop-bag polymorphism with a fixed table looked up by tag.
type Protocol struct {
	Focusable              bool
	Pressable              bool
	RequiresID             bool
	RequiresRoutingRebuild bool
	IsLeaf                 bool
	IsContainer            bool
	IsOverlay              bool
}

var protocolTable = map[Kind]Protocol{
	KindText:       {IsLeaf: true},
	KindSpacer:     {IsLeaf: true},
	KindDivider:    {IsLeaf: true},
	KindRichText:   {IsLeaf: true},
	KindIcon:       {IsLeaf: true},
	KindComposite:  {RequiresRoutingRebuild: true},

	KindBox:           {IsContainer: true},
	KindRow:           {IsContainer: true},
	KindColumn:        {IsContainer: true},
	KindGrid:          {IsContainer: true},
	KindLayers:        {IsContainer: true, RequiresRoutingRebuild: true},
	KindField:         {IsContainer: true},
	KindTabs:          {IsContainer: true, RequiresRoutingRebuild: true},
	KindSplitPane:     {IsContainer: true, RequiresRoutingRebuild: true},
	KindPanelGroup:    {IsContainer: true},
	KindThemed:        {IsContainer: true},
	KindErrorBoundary: {IsContainer: true},
	KindFocusZone:     {IsContainer: true, RequiresRoutingRebuild: true},
	KindFocusTrap:     {IsContainer: true, RequiresRoutingRebuild: true},
	KindModal:         {IsContainer: true, IsOverlay: true, RequiresRoutingRebuild: true},
	KindLayer:         {IsContainer: true, IsOverlay: true, RequiresRoutingRebuild: true},

	KindButton:             {Focusable: true, Pressable: true, RequiresID: true},
	KindLink:               {Focusable: true, Pressable: true, RequiresID: true},
	KindInput:              {Focusable: true, RequiresID: true},
	KindSlider:             {Focusable: true, RequiresID: true},
	KindSelect:             {Focusable: true, RequiresID: true},
	KindCheckbox:           {Focusable: true, Pressable: true, RequiresID: true},
	KindRadioGroup:         {Focusable: true, RequiresID: true},
	KindDropdown:           {Focusable: true, RequiresID: true, IsOverlay: true, RequiresRoutingRebuild: true},
	KindVirtualList:        {Focusable: true, RequiresID: true},
	KindTable:              {Focusable: true, RequiresID: true},
	KindTree:                {Focusable: true, RequiresID: true},
	KindFilePicker:         {Focusable: true, RequiresID: true},
	KindFileTreeExplorer:   {Focusable: true, RequiresID: true},
	KindCommandPalette:     {Focusable: true, RequiresID: true, IsOverlay: true, RequiresRoutingRebuild: true},
	KindDiffViewer:         {Focusable: true, RequiresID: true},
	KindCodeEditor:         {Focusable: true, RequiresID: true},
	KindLogsConsole:        {Focusable: true, RequiresID: true},
	KindToolApprovalDialog: {Focusable: true, RequiresID: true, IsOverlay: true, RequiresRoutingRebuild: true},
	KindToastContainer:     {RequiresRoutingRebuild: true},
}

// ProtocolFor returns the capability table entry for a kind. Unknown kinds
// return the zero Protocol (no capabilities).
func ProtocolFor(k Kind) Protocol {
	return protocolTable[k]
}

// IsInteractive reports whether kind requires a unique string id and
// participates in focus, pressing, or routing.
func IsInteractive(k Kind) bool {
	p := protocolTable[k]
	return p.Focusable || p.Pressable || p.RequiresID
}

// Style is the subset of visual props relevant to fast-path equality and
// layout-stability signatures. Widget-specific semantics beyond routing stay
// out of scope; this only carries what the commit/layout engines compare.
type Style struct {
	Width, Height     int
	Grow, Shrink      int
	PaddingTop        int
	PaddingRight      int
	PaddingBottom     int
	PaddingLeft       int
	MarginTop         int
	MarginRight       int
	MarginBottom      int
	MarginLeft        int
	FlexDirection     string
	Wrap              bool
	Overflow          string
	Variant           string
}

// TransitionSpec describes an exit animation declared on a node.
type TransitionSpec struct {
	DurationMS int
	Easing     string
}

// Props is the kind-agnostic property record a VNode carries. Kind-specific
// payloads (widget text, options, columns, ...) stay external collaborators
// per the framework's scope; the core only needs the fields below to drive
// reconciliation, layout, and routing.
type Props struct {
	ID              string
	Key             string
	Text            string
	Style           Style
	ExitTransition  *TransitionSpec
	WidgetKey       string
	Disabled        bool
	MaxWidth        int
	Overflow        string
	Variant         string
	CloseOnEscape   bool
	CloseOnBackdrop bool
	Navigation      string // "linear" | "grid" | "none"
	Columns         int
	WrapAround      bool
	Shortcut        string

	// OnInput fires after an input editing state mutation (insert, delete,
	// cut, undo/redo) with the resulting value and cursor position, the
	// router's path for surfacing edits back into app state.
	OnInput func(value string, cursor int)

	// Fallback is set only for KindErrorBoundary: it renders a replacement
	// subtree when the boundary's protected child subtree commit fails
	// with USER_CODE_THROW. retry marks the boundary's path for one-shot
	// clearing on the next commit attempt.
	Fallback func(err error, retry func()) VNode
}

// RenderFunc is a composite widget's pure render function. ctx carries
// whatever app-state/viewport context the app threads into it; the core
// only requires it return a child VNode tree and never suspend.
type RenderFunc func(ctx any) VNode

// Selector is an app-state selection a composite VNode declares up front
// (rather than inside render), letting the commit engine decide to reuse
// the previously committed child subtree without invoking render at all
// when every selector's recomputed value still compares equal.
type Selector struct {
	Name    string
	Compute func(appState any) any
	Equal   func(a, b any) bool
}

// VNode is an immutable value describing one intended widget.
type VNode struct {
	Kind      Kind
	Props     Props
	Selectors []Selector
	Children  []VNode
	Render    RenderFunc // set only for KindComposite
}

// Equal reports kind-specific fast structural equality used by the commit
// engine's in-place mutation fast path: style, layout-relevant constraints,
// and (for leaves) content fields, but never children.
func (v VNode) Equal(other VNode) bool {
	if v.Kind != other.Kind {
		return false
	}
	if v.Props.Style != other.Props.Style {
		return false
	}
	if v.Props.ID != other.Props.ID {
		return false
	}
	if protocolTable[v.Kind].IsLeaf {
		return v.Props.Text == other.Props.Text &&
			v.Props.Overflow == other.Props.Overflow &&
			v.Props.Variant == other.Props.Variant &&
			v.Props.MaxWidth == other.Props.MaxWidth
	}
	return v.Props.Disabled == other.Props.Disabled &&
		v.Props.CloseOnEscape == other.Props.CloseOnEscape &&
		v.Props.CloseOnBackdrop == other.Props.CloseOnBackdrop &&
		v.Props.Navigation == other.Props.Navigation &&
		v.Props.Columns == other.Props.Columns &&
		v.Props.WrapAround == other.Props.WrapAround
}

// LayoutSignature derives the per-instance integer hash the layout engine
// uses to decide whether a relayout is forced: kind plus layout-relevant
// props (sizing, spacing, flex, grid axes, child order).
func (v VNode) LayoutSignature() uint64 {
	h := fnvOffset
	h = fnvMix(h, uint64(v.Kind))
	h = fnvMix(h, uint64(v.Props.Style.Width))
	h = fnvMix(h, uint64(v.Props.Style.Height))
	h = fnvMix(h, uint64(v.Props.Style.Grow))
	h = fnvMix(h, uint64(v.Props.Style.Shrink))
	h = fnvMix(h, uint64(v.Props.Style.PaddingTop))
	h = fnvMix(h, uint64(v.Props.Style.PaddingRight))
	h = fnvMix(h, uint64(v.Props.Style.PaddingBottom))
	h = fnvMix(h, uint64(v.Props.Style.PaddingLeft))
	h = fnvMix(h, uint64(v.Props.Style.MarginTop))
	h = fnvMix(h, uint64(v.Props.Style.MarginRight))
	h = fnvMix(h, uint64(v.Props.Style.MarginBottom))
	h = fnvMix(h, uint64(v.Props.Style.MarginLeft))
	h = fnvMixString(h, v.Props.Style.FlexDirection)
	if v.Props.Style.Wrap {
		h = fnvMix(h, 1)
	}
	h = fnvMix(h, uint64(v.Props.Columns))
	h = fnvMix(h, uint64(len(v.Children)))
	for i := range v.Children {
		h = fnvMix(h, uint64(v.Children[i].Kind))
		h = fnvMixString(h, v.Children[i].Props.Key)
	}
	return h
}

const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

func fnvMix(h, v uint64) uint64 {
	for i := 0; i < 8; i++ {
		h ^= v & 0xff
		h *= fnvPrime
		v >>= 8
	}
	return h
}

func fnvMixString(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}
