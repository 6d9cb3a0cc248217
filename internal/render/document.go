package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"course-assessment-service/internal/domain"
	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

const (
	pageWidth  = 800.0
	pageHeight = 600.0

	// IssuerName is printed in the certificate footer.
	IssuerName = "InnoHack Skills Platform"
)

// DocumentBuilder lays certificates out as a single 800x600pt PDF page with a
// QR code that resolves to the verification endpoint.
type DocumentBuilder struct {
	verifyBaseURL string
}

// NewDocumentBuilder returns a builder. When verifyBaseURL is empty the QR
// code carries the bare verification code.
func NewDocumentBuilder(verifyBaseURL string) *DocumentBuilder {
	return &DocumentBuilder{verifyBaseURL: strings.TrimRight(verifyBaseURL, "/")}
}

// VerificationLink is the content encoded in the QR code.
func (b *DocumentBuilder) VerificationLink(code string) string {
	if b.verifyBaseURL == "" {
		return code
	}
	return b.verifyBaseURL + "/certificates/" + code
}

// DocumentLink is the permanent address of the certificate document. It is
// served by re-rendering, so it never expires.
func (b *DocumentBuilder) DocumentLink(code string) string {
	return b.verifyBaseURL + "/certificates/" + code + "/document"
}

func (b *DocumentBuilder) Document(c domain.CourseCertificate) ([]byte, error) {
	qr, err := qrcode.Encode(b.VerificationLink(c.VerificationCode), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetTitle("Certificate of Completion", true)
	pdf.SetAuthor(IssuerName, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// background and double border
	pdf.SetFillColor(248, 250, 252)
	pdf.Rect(0, 0, pageWidth, pageHeight, "F")
	pdf.SetDrawColor(37, 99, 235)
	pdf.SetLineWidth(8)
	pdf.Rect(20, 20, pageWidth-40, pageHeight-40, "D")
	pdf.SetDrawColor(59, 130, 246)
	pdf.SetLineWidth(2)
	pdf.Rect(40, 40, pageWidth-80, pageHeight-80, "D")

	centered := func(y float64, style string, size float64, r, g, bl int, text string) {
		pdf.SetFont("Helvetica", style, size)
		pdf.SetTextColor(r, g, bl)
		pdf.SetXY(0, y)
		pdf.CellFormat(pageWidth, size, tr(text), "", 0, "C", false, 0, "")
	}

	centered(90, "B", 36, 30, 64, 175, "CERTIFICATE OF COMPLETION")
	centered(160, "", 18, 55, 65, 81, "This is to certify that")
	centered(205, "B", 32, 17, 24, 39, strings.ToUpper(c.UserName))
	centered(260, "", 18, 55, 65, 81, "has successfully completed the course")
	centered(300, "B", 24, 37, 99, 235, c.CourseName)
	centered(350, "", 16, 75, 85, 99, "Skill: "+c.Skill)
	centered(378, "", 16, 75, 85, 99, fmt.Sprintf("Score: %d%%", c.Score))
	centered(406, "", 16, 75, 85, 99, "Date: "+c.IssuedAt.Format("January 2, 2006"))

	pdf.SetFont("Helvetica", "I", 14)
	pdf.SetTextColor(107, 114, 128)
	pdf.SetXY(60, 500)
	pdf.CellFormat(400, 14, tr(IssuerName), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(60, 520)
	pdf.CellFormat(400, 10, "Verification Code: "+c.VerificationCode, "", 0, "L", false, 0, "")

	qrName := "qr-" + c.VerificationCode
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(qrName, opts, bytes.NewReader(qr))
	pdf.ImageOptions(qrName, pageWidth-160, pageHeight-160, 100, 100, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// ObjectName is where a certificate document is stored.
func ObjectName(c domain.CourseCertificate) string {
	return fmt.Sprintf("certificates/%s/%s-%s.pdf", c.UserID, c.VerificationCode, c.IssuedAt.UTC().Format(time.DateOnly))
}
