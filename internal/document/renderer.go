// Package document формирует печатную форму счёта в формате PDF.
package document

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/mmeshcher/billdesk/internal/model"
)

const (
	// TimestampLayout задаёт формат времени формирования в шапке документа.
	TimestampLayout = "2006-01-02 15:04"

	// DefaultTitle используется, если заголовок не задан.
	DefaultTitle = "Bill"

	rowHeight    = 10.0
	bottomMargin = 20.0

	snapshotX     = 80.0
	snapshotWidth = 40.0
	snapshotName  = "snapshot"
)

// Ширины колонок таблицы в миллиметрах: Item, Price, Qty, Total.
var columnWidths = [4]float64{70, 40, 30, 50}

var columnTitles = [4]string{"Item", "Price", "Qty", "Total"}

// Input содержит данные для печати счёта.
type Input struct {
	ClientName  string
	Items       []model.LineItem
	GrandTotal  model.Amount
	Snapshot    []byte
	GeneratedAt time.Time
}

// Document содержит готовый PDF и число страниц в нём.
type Document struct {
	Bytes []byte
	Pages int
}

// Renderer размещает таблицу счёта и QR-код на страницах A4.
//
// Если строки не помещаются на страницу, начинается новая страница и строка
// заголовка таблицы повторяется. Renderer не хранит состояния между вызовами.
type Renderer struct {
	title    string
	compress bool
}

// NewRenderer создаёт Renderer. compress включает сжатие потоков страниц.
func NewRenderer(title string, compress bool) *Renderer {
	if title == "" {
		title = DefaultTitle
	}
	return &Renderer{title: title, compress: compress}
}

// Render возвращает PDF-документ целиком.
func (r *Renderer) Render(in Input) (*Document, error) {
	generatedAt := in.GeneratedAt.UTC()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetTitle(r.title, true)
	pdf.SetAutoPageBreak(false, bottomMargin)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, rowHeight, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	l := &layout{pdf: pdf, tr: tr}

	pdf.AddPage()

	pdf.SetFont("Arial", "", 16)
	pdf.CellFormat(0, rowHeight, tr(r.title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, rowHeight, tr("Client: "+in.ClientName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, rowHeight, "Generated: "+generatedAt.Format(TimestampLayout), "", 1, "L", false, 0, "")
	pdf.Ln(rowHeight)

	l.tableHeader()

	for _, it := range in.Items {
		l.ensureRoom(rowHeight, true)
		l.row(it.Name, it.Price.String(), strconv.Itoa(it.Quantity), it.Total.String())
	}

	l.ensureRoom(rowHeight, true)
	pdf.CellFormat(columnWidths[0]+columnWidths[1]+columnWidths[2], rowHeight, "Grand Total:", "1", 0, "R", false, 0, "")
	pdf.CellFormat(columnWidths[3], rowHeight, in.GrandTotal.String(), "1", 1, "L", false, 0, "")

	if len(in.Snapshot) > 0 {
		pdf.Ln(rowHeight)

		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		info := pdf.RegisterImageOptionsReader(snapshotName, opts, bytes.NewReader(in.Snapshot))
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("register snapshot image: %w", err)
		}

		height := snapshotWidth
		if info.Width() > 0 {
			height = snapshotWidth * info.Height() / info.Width()
		}
		l.ensureRoom(height, false)
		pdf.ImageOptions(snapshotName, snapshotX, pdf.GetY(), snapshotWidth, height, false, opts, 0, "")
	}

	pages := pdf.PageCount()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	return &Document{Bytes: buf.Bytes(), Pages: pages}, nil
}

type layout struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func (l *layout) tableHeader() {
	l.pdf.SetFont("Arial", "B", 12)
	l.row(columnTitles[0], columnTitles[1], columnTitles[2], columnTitles[3])
	l.pdf.SetFont("Arial", "", 12)
}

func (l *layout) row(cells ...string) {
	for i, c := range cells {
		ln := 0
		if i == len(cells)-1 {
			ln = 1
		}
		l.pdf.CellFormat(columnWidths[i], rowHeight, l.tr(c), "1", ln, "L", false, 0, "")
	}
}

// ensureRoom переходит на новую страницу, если блок высотой h не помещается над нижним полем.
func (l *layout) ensureRoom(h float64, repeatHeader bool) {
	_, pageHeight := l.pdf.GetPageSize()
	if l.pdf.GetY()+h <= pageHeight-bottomMargin {
		return
	}

	l.pdf.AddPage()
	if repeatHeader {
		l.tableHeader()
	}
}
