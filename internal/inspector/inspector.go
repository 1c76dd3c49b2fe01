// Package inspector is a read-only terminal browser over a decoded
// archive: blocks and their segments on the left, a detail pane with
// header/segment fields on the right, and a status bar. It sits above
// internal/container's ListBlocks and is never touched by the
// compression/decompression path itself.
package inspector

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lookbusy1344/zpaqgo/internal/container"
	"github.com/lookbusy1344/zpaqgo/internal/predict"
)

// row is one flattened entry in the left-hand list: either a block
// header line or one of its segment lines.
type row struct {
	blockIdx   int
	segmentIdx int // -1 for a block header row
}

// Inspector is a read-only tview application browsing a slice of
// container.BlockInfo already produced by container.ListBlocks.
type Inspector struct {
	App   *tview.Application
	Pages *tview.Pages

	MainLayout *tview.Flex
	ListView   *tview.List
	DetailView *tview.TextView
	StatusBar  *tview.TextView

	blocks []container.BlockInfo
	rows   []row
}

// New builds an Inspector over blocks. Call Run to start the event loop.
func New(blocks []container.BlockInfo) *Inspector {
	ins := &Inspector{
		App:    tview.NewApplication(),
		blocks: blocks,
	}
	ins.initializeViews()
	ins.buildLayout()
	ins.setupKeyBindings()
	ins.populateList()
	return ins
}

func (ins *Inspector) initializeViews() {
	ins.ListView = tview.NewList().ShowSecondaryText(false)
	ins.ListView.SetBorder(true).SetTitle(" Archive ")

	ins.DetailView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	ins.DetailView.SetBorder(true).SetTitle(" Detail ")

	ins.StatusBar = tview.NewTextView().SetDynamicColors(true)
	ins.StatusBar.SetText("[yellow]q[white]:quit  [yellow]enter[white]:select  [yellow]arrows[white]:navigate")
}

func (ins *Inspector) buildLayout() {
	content := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ins.ListView, 0, 1, true).
		AddItem(ins.DetailView, 0, 2, false)

	ins.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(content, 0, 1, true).
		AddItem(ins.StatusBar, 1, 0, false)

	ins.Pages = tview.NewPages().AddPage("main", ins.MainLayout, true, true)
}

func (ins *Inspector) setupKeyBindings() {
	ins.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			ins.App.Stop()
			return nil
		}
		if event.Rune() == 'q' {
			ins.App.Stop()
			return nil
		}
		return event
	})
}

// populateList flattens every block and its segments into the list,
// selecting the first row and showing its detail.
func (ins *Inspector) populateList() {
	ins.ListView.Clear()
	ins.rows = ins.rows[:0]

	for bi, b := range ins.blocks {
		ins.ListView.AddItem(fmt.Sprintf("Block %d (%d comps, %d segs)", bi, len(b.Header.Comps), len(b.Segments)), "", 0, nil)
		ins.rows = append(ins.rows, row{blockIdx: bi, segmentIdx: -1})
		for si, s := range b.Segments {
			name := s.Filename
			if name == "" {
				name = "(unnamed)"
			}
			ins.ListView.AddItem("  "+name, "", 0, nil)
			ins.rows = append(ins.rows, row{blockIdx: bi, segmentIdx: si})
		}
	}

	ins.ListView.SetChangedFunc(func(index int, _, _ string, _ rune) {
		ins.showDetail(index)
	})
	if len(ins.rows) > 0 {
		ins.showDetail(0)
	}
}

func (ins *Inspector) showDetail(index int) {
	if index < 0 || index >= len(ins.rows) {
		return
	}
	r := ins.rows[index]
	b := ins.blocks[r.blockIdx]

	var sb strings.Builder
	if r.segmentIdx < 0 {
		fmt.Fprintf(&sb, "[yellow]Block %d[white]\n\n", r.blockIdx)
		writeHeaderDetail(&sb, b.Header)
	} else {
		seg := b.Segments[r.segmentIdx]
		fmt.Fprintf(&sb, "[yellow]Block %d, segment %d[white]\n\n", r.blockIdx, r.segmentIdx)
		fmt.Fprintf(&sb, "filename: %s\n", orEmpty(seg.Filename))
		fmt.Fprintf(&sb, "comment:  %s\n", orEmpty(seg.Comment))
		fmt.Fprintf(&sb, "payload bytes: %d\n", seg.Size)
		if size, tag, ok := container.ParseSizeComment(seg.Comment); ok {
			fmt.Fprintf(&sb, "size comment: %d bytes, tag %q\n", size, tag)
		}
		if seg.Digest != nil {
			fmt.Fprintf(&sb, "digest: %x\n", *seg.Digest)
		} else {
			sb.WriteString("digest: (none)\n")
		}
	}
	ins.DetailView.SetText(sb.String())
}

func writeHeaderDetail(sb *strings.Builder, h *predict.Header) {
	fmt.Fprintf(sb, "hh=%d hm=%d ph=%d pm=%d\n", h.HH, h.HM, h.PH, h.PM)
	fmt.Fprintf(sb, "components: %d\n", len(h.Comps))
	for i, c := range h.Comps {
		fmt.Fprintf(sb, "  %3d %s\n", i, c.Type)
	}
	fmt.Fprintf(sb, "HCOMP: %d bytes\n", len(h.HCOMP))
	if h.PCOMP != nil {
		fmt.Fprintf(sb, "PCOMP: %d bytes\n", len(h.PCOMP))
	} else {
		sb.WriteString("PCOMP: (none, POST 0)\n")
	}
}

func orEmpty(s string) string {
	if s == "" {
		return "(empty)"
	}
	return s
}

// Run starts the TUI event loop; it returns when the user quits.
func (ins *Inspector) Run() error {
	ins.App.SetRoot(ins.Pages, true)
	if len(ins.rows) > 0 {
		ins.App.SetFocus(ins.ListView)
	}
	return ins.App.Run()
}
