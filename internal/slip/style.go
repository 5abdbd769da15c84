package slip

import (
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Schema order of paragraph and run property children; Word rejects
// properties written out of order.
var (
	pPrOrder = []string{
		"w:pStyle", "w:keepNext", "w:keepLines", "w:pageBreakBefore", "w:framePr", "w:widowControl",
		"w:numPr", "w:suppressLineNumbers", "w:pBdr", "w:shd", "w:tabs", "w:suppressAutoHyphens",
		"w:kinsoku", "w:wordWrap", "w:overflowPunct", "w:topLinePunct", "w:autoSpaceDE", "w:autoSpaceDN",
		"w:bidi", "w:adjustRightInd", "w:snapToGrid", "w:spacing", "w:ind", "w:contextualSpacing",
		"w:mirrorIndents", "w:suppressOverlap", "w:jc", "w:textDirection", "w:textAlignment",
		"w:textboxTightWrap", "w:outlineLvl", "w:divId", "w:cnfStyle", "w:rPr", "w:sectPr", "w:pPrChange",
	}
	rPrOrder = []string{
		"w:rStyle", "w:rFonts", "w:b", "w:bCs", "w:i", "w:iCs", "w:caps", "w:smallCaps", "w:strike",
		"w:dstrike", "w:outline", "w:shadow", "w:emboss", "w:imprint", "w:noProof", "w:snapToGrid",
		"w:vanish", "w:webHidden", "w:color", "w:spacing", "w:w", "w:kern", "w:position", "w:sz", "w:szCs",
	}
)

const (
	collapsedLineTwips = "20"
	collapsedSizeHalf  = "2"
)

// TextStyle is applied to every value written into a slip.
type TextStyle struct {
	Font      string
	SizePt    float64
	Bold      bool
	Align     string
	LineTwips int
}

func DefaultTextStyle() TextStyle {
	return TextStyle{Font: "Arial", SizePt: 10, Bold: false, Align: "center", LineTwips: 240}
}

func (s TextStyle) halfPoints() string {
	size := s.SizePt
	if size <= 0 {
		size = DefaultTextStyle().SizePt
	}
	return strconv.Itoa(int(math.Round(size * 2)))
}

// applyParagraph sets alignment and single line spacing on p, keeping any
// other paragraph properties the template carries.
func (s TextStyle) applyParagraph(p *etree.Element) {
	pPr := ensurePPr(p)
	spacing := setOrderedChild(pPr, "w:spacing", pPrOrder)
	spacing.CreateAttr("w:before", "0")
	spacing.CreateAttr("w:after", "0")
	line := s.LineTwips
	if line <= 0 {
		line = DefaultTextStyle().LineTwips
	}
	spacing.CreateAttr("w:line", strconv.Itoa(line))
	spacing.CreateAttr("w:lineRule", "auto")

	align := s.Align
	if align == "" {
		align = DefaultTextStyle().Align
	}
	setOrderedChild(pPr, "w:jc", pPrOrder).CreateAttr("w:val", align)
}

// appendRuns writes text as styled runs; newlines become line breaks.
func (s TextStyle) appendRuns(p *etree.Element, text string) {
	for i, line := range strings.Split(text, "\n") {
		r := p.CreateElement("w:r")
		s.runProperties(r)
		if i > 0 {
			r.CreateElement("w:br")
		}
		t := r.CreateElement("w:t")
		t.CreateAttr("xml:space", "preserve")
		t.SetText(line)
	}
}

func (s TextStyle) runProperties(r *etree.Element) {
	rPr := r.CreateElement("w:rPr")
	font := s.Font
	if font == "" {
		font = DefaultTextStyle().Font
	}
	fonts := setOrderedChild(rPr, "w:rFonts", rPrOrder)
	fonts.CreateAttr("w:ascii", font)
	fonts.CreateAttr("w:hAnsi", font)
	fonts.CreateAttr("w:eastAsia", font)
	fonts.CreateAttr("w:cs", font)
	if s.Bold {
		setOrderedChild(rPr, "w:b", rPrOrder)
		setOrderedChild(rPr, "w:bCs", rPrOrder)
	} else {
		setOrderedChild(rPr, "w:b", rPrOrder).CreateAttr("w:val", "0")
		setOrderedChild(rPr, "w:bCs", rPrOrder).CreateAttr("w:val", "0")
	}
	size := s.halfPoints()
	setOrderedChild(rPr, "w:sz", rPrOrder).CreateAttr("w:val", size)
	setOrderedChild(rPr, "w:szCs", rPrOrder).CreateAttr("w:val", size)
}

// collapseParagraph shrinks an empty paragraph to a one point line.
func collapseParagraph(p *etree.Element) {
	pPr := ensurePPr(p)
	spacing := setOrderedChild(pPr, "w:spacing", pPrOrder)
	spacing.CreateAttr("w:before", "0")
	spacing.CreateAttr("w:after", "0")
	spacing.CreateAttr("w:line", collapsedLineTwips)
	spacing.CreateAttr("w:lineRule", "exact")

	mark := pPr.SelectElement("w:rPr")
	if mark == nil {
		mark = setOrderedChild(pPr, "w:rPr", pPrOrder)
	}
	setOrderedChild(mark, "w:sz", rPrOrder).CreateAttr("w:val", collapsedSizeHalf)
	setOrderedChild(mark, "w:szCs", rPrOrder).CreateAttr("w:val", collapsedSizeHalf)
}

func ensurePPr(p *etree.Element) *etree.Element {
	if pPr := p.SelectElement("w:pPr"); pPr != nil {
		return pPr
	}
	pPr := etree.NewElement("w:pPr")
	p.InsertChildAt(0, pPr)
	return pPr
}

// setOrderedChild replaces any existing child named tag with an empty one
// placed at its schema position.
func setOrderedChild(parent *etree.Element, tag string, order []string) *etree.Element {
	for _, old := range parent.SelectElements(tag) {
		parent.RemoveChild(old)
	}
	el := etree.NewElement(tag)
	rank := orderOf(order, tag)
	for _, child := range parent.ChildElements() {
		if orderOf(order, child.FullTag()) > rank {
			parent.InsertChildAt(child.Index(), el)
			return el
		}
	}
	parent.AddChild(el)
	return el
}

func orderOf(order []string, tag string) int {
	for i, t := range order {
		if t == tag {
			return i
		}
	}
	return -1
}
