package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ivlev/anim2lvgl/internal/config"
	"github.com/ivlev/anim2lvgl/internal/logging"
)

// flexString accepts a JSON string or number. The studio generates numeric
// ids for shapes created before ids became strings.
type flexString struct {
	Value string
	Set   bool
}

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f.Value, f.Set = s, s != ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	f.Value, f.Set = n.String(), true
	return nil
}

type rawPoint struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type rawShape struct {
	ID       flexString `json:"id"`
	Type     *string    `json:"type"`
	X        *float64   `json:"x"`
	Y        *float64   `json:"y"`
	Width    *float64   `json:"width"`
	Height   *float64   `json:"height"`
	Rotation *float64   `json:"rotation"`
	Color    *string    `json:"color"`
	Opacity  *float64   `json:"opacity"`
	LineEnd  *rawPoint  `json:"lineEnd"`
	Text     *string    `json:"text"`
	FontSize *float64   `json:"fontSize"`
}

type rawPixel struct {
	I *int    `json:"i"`
	C *string `json:"c"`
}

type rawFrame struct {
	Duration *float64    `json:"duration"`
	Easing   *string     `json:"easing"`
	Shapes   []*rawShape `json:"shapes"`
	Pixels   []*rawPixel `json:"pixels"`
}

type rawState struct {
	ID     flexString  `json:"id"`
	Name   string      `json:"name"`
	Frames []*rawFrame `json:"frames"`
}

type rawDocument struct {
	Version       string      `json:"version"`
	Name          string      `json:"name"`
	Width         *float64    `json:"width"`
	Height        *float64    `json:"height"`
	FPS           *float64    `json:"fps"`
	EasingMode    string      `json:"easingMode"`
	ActiveStateID flexString  `json:"activeStateId"`
	States        []*rawState `json:"states"`
	Frames        []*rawFrame `json:"frames"`
}

// ParseFile reads and parses a studio JSON document. The document name
// defaults to the file's base name.
func ParseFile(path string, d config.Defaults) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(data, name, d)
}

// Parse decodes a studio document. Problems with a safe default are
// recovered and recorded in Document.Warnings; structural problems abort
// with a LocationError wrapping ErrMalformedInput.
func Parse(data []byte, fallbackName string, d config.Defaults) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, docError(fallbackName, ErrMalformedInput, "%v", err)
	}

	p := &parser{doc: &Document{}, defaults: d}
	doc := p.doc

	doc.Version = raw.Version
	doc.Name = raw.Name
	if doc.Name == "" {
		doc.Name = fallbackName
	}
	doc.Width = p.dimension(raw.Width, d.Width, "width")
	doc.Height = p.dimension(raw.Height, d.Height, "height")
	if doc.Width <= 0 || doc.Height <= 0 {
		return nil, docError(doc.Name, ErrMalformedInput, "canvas %dx%d", doc.Width, doc.Height)
	}
	if doc.Width > math.MaxUint16 || doc.Height > math.MaxUint16 {
		return nil, docError(doc.Name, ErrMalformedInput, "canvas %dx%d exceeds 65535", doc.Width, doc.Height)
	}

	fps := d.FPS
	if raw.FPS != nil {
		fps = int(math.Round(*raw.FPS))
	}
	doc.FPS = d.ClampFPS(fps)
	doc.Easing = ParseEasing(raw.EasingMode)

	switch {
	case len(raw.States) > 0:
		for si, rs := range raw.States {
			if rs == nil {
				p.warn(docError(doc.Name, ErrMalformedInput, "state %d is null, skipped", si))
				continue
			}
			id := rs.ID.Value
			if !rs.ID.Set {
				id = strconv.Itoa(si)
			}
			st := State{ID: id, Name: rs.Name}
			st.Frames = p.frames(id, rs.Frames)
			doc.States = append(doc.States, st)
		}
	case raw.Frames != nil:
		// legacy flat form
		st := State{ID: "idle", Name: "Idle"}
		st.Frames = p.frames(st.ID, raw.Frames)
		doc.States = append(doc.States, st)
	}

	if len(doc.States) == 0 {
		return nil, docError(doc.Name, ErrMalformedInput, "no states or frames")
	}

	doc.ActiveStateID = raw.ActiveStateID.Value
	if _, err := doc.State(doc.ActiveStateID); doc.ActiveStateID == "" || err != nil {
		if doc.ActiveStateID != "" {
			p.warn(docError(doc.Name, ErrMalformedInput, "active state %q not found, using %q", doc.ActiveStateID, doc.States[0].ID))
		}
		doc.ActiveStateID = doc.States[0].ID
	}

	return doc, nil
}

// State returns the state with the given id.
func (d *Document) State(id string) (*State, error) {
	for i := range d.States {
		if d.States[i].ID == id {
			return &d.States[i], nil
		}
	}
	return nil, &LocationError{Doc: d.Name, State: id, Frame: -1, Shape: -1, Err: ErrMalformedInput, Detail: "state not found"}
}

// ActiveState returns the state selected for export. It fails when the
// state has no frames, since nothing can be exported from it.
func (d *Document) ActiveState() (*State, error) {
	st, err := d.State(d.ActiveStateID)
	if err != nil {
		return nil, err
	}
	if len(st.Frames) == 0 {
		return nil, &LocationError{Doc: d.Name, State: st.ID, Frame: -1, Shape: -1, Err: ErrMalformedInput, Detail: "state has no frames"}
	}
	return st, nil
}

type parser struct {
	doc      *Document
	defaults config.Defaults
}

func (p *parser) warn(err *LocationError) {
	p.doc.Warnings = append(p.doc.Warnings, err)
	logging.Logger().Warn("recovered input problem", "error", err.Error())
}

func (p *parser) dimension(v *float64, def int, field string) int {
	if v == nil {
		p.warn(docError(p.doc.Name, ErrMalformedInput, "%s missing, using %d", field, def))
		return def
	}
	return int(math.Round(*v))
}

func (p *parser) frames(stateID string, raws []*rawFrame) []Frame {
	frames := make([]Frame, 0, len(raws))
	for fi, rf := range raws {
		loc := LocationError{Doc: p.doc.Name, State: stateID, Frame: fi, Shape: -1}
		if rf == nil {
			rf = &rawFrame{}
		}

		f := Frame{Duration: p.defaults.FrameDuration, Easing: p.doc.Easing}
		if rf.Duration != nil {
			f.Duration = int(math.Round(*rf.Duration))
		}
		if f.Duration <= 0 {
			e := loc
			e.Err, e.Detail = ErrArithmeticGuard, fmt.Sprintf("duration %d treated as 0", f.Duration)
			p.warn(&e)
			f.Duration = 0
		}
		if rf.Easing != nil {
			f.Easing = ParseEasing(*rf.Easing)
		}

		for si, rs := range rf.Shapes {
			if rs == nil {
				continue
			}
			sloc := loc
			sloc.Shape = si
			f.Shapes = append(f.Shapes, p.shape(rs, sloc))
		}

		limit := p.doc.Width * p.doc.Height
		for _, rp := range rf.Pixels {
			if rp == nil || rp.I == nil || rp.C == nil {
				continue
			}
			c, ok := ParseColor(*rp.C)
			if !ok || *rp.I < 0 || *rp.I >= limit {
				continue
			}
			f.Pixels = append(f.Pixels, Pixel{Index: *rp.I, Color: c})
		}

		ix := NewIndex(f.Shapes)
		for _, dup := range ix.Duplicates {
			e := loc
			e.Shape = dup
			e.Err, e.Detail = ErrDuplicateID, fmt.Sprintf("id %q already used, first occurrence is matched", f.Shapes[dup].ID)
			p.warn(&e)
		}

		frames = append(frames, f)
	}
	return frames
}

func (p *parser) shape(rs *rawShape, loc LocationError) Shape {
	d := p.defaults
	s := Shape{
		ID:       rs.ID.Value,
		X:        deref(rs.X),
		Y:        deref(rs.Y),
		Width:    deref(rs.Width),
		Height:   deref(rs.Height),
		Rotation: deref(rs.Rotation),
		Color:    RGB(d.Color),
		Opacity:  d.Opacity,
		FontSize: d.FontSize,
	}

	typeName := ""
	if rs.Type != nil {
		typeName = *rs.Type
	}
	t, ok := ParseShapeType(typeName)
	if !ok {
		e := loc
		e.Err, e.Detail = ErrUnsupportedShapeType, fmt.Sprintf("%q rendered as rect", typeName)
		p.warn(&e)
	}
	s.Type = t

	if rs.Color != nil {
		if c, ok := ParseColor(*rs.Color); ok {
			s.Color = c
		} else {
			e := loc
			e.Err, e.Detail = ErrMalformedInput, fmt.Sprintf("color %q, using %s", *rs.Color, RGB(d.Color).Hex())
			p.warn(&e)
		}
	}
	if rs.Opacity != nil {
		s.Opacity = *rs.Opacity
	}
	s.Opacity = clamp01(s.Opacity)

	if rs.LineEnd != nil {
		s.LineEnd = &Point{X: deref(rs.LineEnd.X), Y: deref(rs.LineEnd.Y)}
	}
	if rs.Text != nil {
		s.Text = *rs.Text
	}
	if rs.FontSize != nil && *rs.FontSize > 0 {
		s.FontSize = int(math.Round(*rs.FontSize))
	}
	if s.FontSize > math.MaxUint8 {
		s.FontSize = math.MaxUint8
	}
	return s
}

func deref(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
