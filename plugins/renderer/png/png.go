package png

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"slowniki/pkg/contract"
)

// Options: 页面版式。零值字段取默认值（A4 @150dpi）。
type Options struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Margin     int     `json:"margin"`
	HeaderSize float64 `json:"header_size"`
	BodySize   float64 `json:"body_size"`
	TitleSize  float64 `json:"title_size"`
	// Padding: 正文行上下内边距（像素）。
	Padding float64 `json:"padding"`
	// HeaderPadding: 表头下内边距（像素）。
	HeaderPadding float64 `json:"header_padding"`
	// Columns: 三列宽度占比，合计应为 1。
	Columns []float64 `json:"columns"`
}

func (o *Options) defaults() {
	if o.Width <= 0 {
		o.Width = 1240
	}
	if o.Height <= 0 {
		o.Height = 1754
	}
	if o.Margin <= 0 {
		o.Margin = 62
	}
	if o.HeaderSize <= 0 {
		o.HeaderSize = 28
	}
	if o.BodySize <= 0 {
		o.BodySize = 20
	}
	if o.TitleSize <= 0 {
		o.TitleSize = 24
	}
	if o.Padding <= 0 {
		o.Padding = 3
	}
	if o.HeaderPadding <= 0 {
		o.HeaderPadding = 12
	}
	if len(o.Columns) == 0 {
		o.Columns = []float64{0.35, 0.30, 0.35}
	}
}

// Renderer 将三列表格绘制为 PNG 分页。
type Renderer struct {
	opts Options
	font *truetype.Font
}

// New 从原样 JSON Options 创建渲染器。
func New(raw json.RawMessage) (*Renderer, error) {
	var opts Options
	if len(raw) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return nil, fmt.Errorf("png options: %w", err)
		}
	}
	opts.defaults()
	if len(opts.Columns) != 3 {
		return nil, fmt.Errorf("png options: want 3 columns, got %d: %w", len(opts.Columns), contract.ErrInvalidInput)
	}
	sum := 0.0
	for _, c := range opts.Columns {
		if c <= 0 {
			return nil, fmt.Errorf("png options: column width must be > 0: %w", contract.ErrInvalidInput)
		}
		sum += c
	}
	if math.Abs(sum-1) > 1e-6 {
		return nil, fmt.Errorf("png options: column widths sum to %.3f: %w", sum, contract.ErrInvalidInput)
	}
	if opts.Width <= 2*opts.Margin || opts.Height <= 2*opts.Margin {
		return nil, fmt.Errorf("png options: margin too large: %w", contract.ErrInvalidInput)
	}
	// 内置字体覆盖波兰语变音字母
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Renderer{opts: opts, font: f}, nil
}

// layout: 单页几何。
type layout struct {
	x0, y0, w float64
	cols       [3]float64
	titleH     float64
	headerH    float64
	rowH       float64
	perPage    int
}

func (r *Renderer) layout(title string) (layout, error) {
	o := r.opts
	l := layout{x0: float64(o.Margin), y0: float64(o.Margin), w: float64(o.Width - 2*o.Margin)}
	for i, c := range o.Columns {
		l.cols[i] = l.w * c
	}
	if title != "" {
		l.titleH = math.Ceil(o.TitleSize * 1.6)
	}
	l.headerH = math.Ceil(o.HeaderSize*1.4) + o.HeaderPadding
	l.rowH = math.Ceil(o.BodySize*1.4) + 2*o.Padding
	avail := float64(o.Height-2*o.Margin) - l.titleH - l.headerH
	l.perPage = int(avail / l.rowH)
	if l.perPage < 1 {
		return l, fmt.Errorf("png: page too small for one row: %w", contract.ErrInvalidInput)
	}
	return l, nil
}

// RowsPerPage 返回每页可容纳的正文行数。
func (r *Renderer) RowsPerPage(title string) (int, error) {
	l, err := r.layout(title)
	return l.perPage, err
}

// Render 分页绘制；每页重复表头，空表返回零页。
func (r *Renderer) Render(ctx context.Context, t contract.Table) ([]contract.Page, error) {
	if len(t.Rows) == 0 {
		return nil, nil
	}
	l, err := r.layout(t.Title)
	if err != nil {
		return nil, err
	}
	header := truetype.NewFace(r.font, &truetype.Options{Size: r.opts.HeaderSize})
	body := truetype.NewFace(r.font, &truetype.Options{Size: r.opts.BodySize})
	var titleFace font.Face
	if t.Title != "" {
		titleFace = truetype.NewFace(r.font, &truetype.Options{Size: r.opts.TitleSize})
	}

	pages := make([]contract.Page, 0, (len(t.Rows)+l.perPage-1)/l.perPage)
	for from := 0; from < len(t.Rows); from += l.perPage {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		to := min(from+l.perPage, len(t.Rows))
		idx := len(pages) + 1
		var buf bytes.Buffer
		if err := r.drawPage(&buf, l, t, t.Rows[from:to], idx, header, body, titleFace); err != nil {
			return nil, fmt.Errorf("page %d: %w", idx, err)
		}
		pages = append(pages, contract.Page{Index: idx, Data: buf.Bytes()})
	}
	return pages, nil
}

func (r *Renderer) drawPage(buf *bytes.Buffer, l layout, t contract.Table, rows []contract.Row, idx int, header, body, title font.Face) error {
	dc := gg.NewContext(r.opts.Width, r.opts.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	y := l.y0
	if title != nil {
		dc.SetFontFace(title)
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(fmt.Sprintf("%s  (%d)", t.Title, idx), l.x0+l.w/2, y+l.titleH/2, 0.5, 0.5)
		y += l.titleH
	}

	// 表头：灰底、白烟色文字
	dc.SetRGB(0.5, 0.5, 0.5)
	dc.DrawRectangle(l.x0, y, l.w, l.headerH)
	dc.Fill()
	dc.SetFontFace(header)
	dc.SetRGB(0.96, 0.96, 0.96)
	r.drawCells(dc, l, t.Header, y, l.headerH-r.opts.HeaderPadding)
	tableTop := y
	y += l.headerH

	// 正文：白底黑字
	dc.SetFontFace(body)
	dc.SetRGB(0, 0, 0)
	for _, row := range rows {
		r.drawCells(dc, l, row, y, l.rowH)
		y += l.rowH
	}

	// 网格
	dc.SetLineWidth(1)
	dc.SetRGB(0, 0, 0)
	dc.DrawLine(l.x0, tableTop, l.x0+l.w, tableTop)
	dc.DrawLine(l.x0, tableTop+l.headerH, l.x0+l.w, tableTop+l.headerH)
	for i := 1; i <= len(rows); i++ {
		yy := tableTop + l.headerH + float64(i)*l.rowH
		dc.DrawLine(l.x0, yy, l.x0+l.w, yy)
	}
	x := l.x0
	dc.DrawLine(x, tableTop, x, y)
	for _, cw := range l.cols {
		x += cw
		dc.DrawLine(x, tableTop, x, y)
	}
	dc.Stroke()

	return dc.EncodePNG(buf)
}

// drawCells 在 [top, top+h) 内居中绘制三个单元格，超宽文本截断并加省略号。
func (r *Renderer) drawCells(dc *gg.Context, l layout, cells contract.Row, top, h float64) {
	x := l.x0
	for i, s := range cells {
		cw := l.cols[i]
		s = fit(dc, s, cw-2*r.opts.Padding)
		dc.DrawStringAnchored(s, x+cw/2, top+h/2, 0.5, 0.35)
		x += cw
	}
}

func fit(dc *gg.Context, s string, maxW float64) string {
	if w, _ := dc.MeasureString(s); w <= maxW {
		return s
	}
	rs := []rune(s)
	for len(rs) > 0 {
		rs = rs[:len(rs)-1]
		c := string(rs) + "…"
		if w, _ := dc.MeasureString(c); w <= maxW {
			return c
		}
	}
	return ""
}

var _ contract.Renderer = (*Renderer)(nil)
