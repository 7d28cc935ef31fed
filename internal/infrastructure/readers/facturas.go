package readers

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/beevik/etree"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
)

// ReadInvoiceZip extrae las facturas de un ZIP de proveedor. Cada XML UBL (Invoice, CreditNote,
// DebitNote o AttachedDocument con la factura embebida) produce un documento. Un ZIP sin XML
// produce un único documento para su PDF principal, con el número tomado del nombre del ZIP.
func ReadInvoiceZip(r io.Reader, zipName string) ([]onboarding.RawInvoice, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, wrap(zipName, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, wrap(zipName, fmt.Errorf("abrir ZIP: %w", err))
	}

	var xmls, pdfs []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(f.Name)) {
		case ".xml":
			xmls = append(xmls, f)
		case ".pdf":
			pdfs = append(pdfs, f)
		}
	}
	sort.Slice(xmls, func(i, j int) bool { return xmls[i].Name < xmls[j].Name })
	sort.Slice(pdfs, func(i, j int) bool { return pdfs[i].Name < pdfs[j].Name })

	var out []onboarding.RawInvoice
	for _, f := range xmls {
		content, err := readEntry(f)
		if err != nil {
			return nil, wrap(zipName, err)
		}
		inv, ok, err := parseUBL(content)
		if err != nil {
			return nil, wrap(zipName+"!"+f.Name, err)
		}
		if !ok {
			continue
		}
		inv.ZipName, inv.FileName = zipName, f.Name
		if inv.Number == "" {
			inv.Number = numberFromName(zipName)
		}
		out = append(out, inv)
	}
	if len(out) > 0 || len(pdfs) == 0 {
		return out, nil
	}

	primary := primaryPDF(zipName, pdfs)
	return []onboarding.RawInvoice{{
		ZipName:  zipName,
		FileName: primary.Name,
		Number:   numberFromName(zipName),
	}}, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("zip: abrir %s: %w", f.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("zip: leer %s: %w", f.Name, err)
	}
	return b, nil
}

// baseName nombre del archivo sin ruta ni extensión.
func baseName(name string) string {
	b := path.Base(name)
	return strings.TrimSuffix(b, path.Ext(b))
}

// numberFromName número de factura a partir del nombre del ZIP (los ZIP se renombran con el
// número). Vacío si el nombre no trae dígitos.
func numberFromName(name string) string {
	b := strings.TrimSpace(baseName(name))
	if !strings.ContainsFunc(b, unicode.IsDigit) {
		return ""
	}
	return strings.ToUpper(b)
}

// primaryPDF el PDF cuyo nombre más se parece al del ZIP; empate por orden de nombre.
func primaryPDF(zipName string, pdfs []*zip.File) *zip.File {
	target := []rune(strings.ToUpper(baseName(zipName)))
	best, bestScore := pdfs[0], -1.0
	for _, f := range pdfs {
		s := levenshtein.RatioForStrings(target, []rune(strings.ToUpper(baseName(f.Name))), levenshtein.DefaultOptions)
		if s > bestScore {
			best, bestScore = f, s
		}
	}
	return best
}

// ─── UBL ──────────────────────────────────────────────────────────────────────

var ublDocuments = map[string]struct{ typeCode, line, total string }{
	"Invoice":    {"InvoiceTypeCode", "InvoiceLine", "LegalMonetaryTotal"},
	"CreditNote": {"CreditNoteTypeCode", "CreditNoteLine", "LegalMonetaryTotal"},
	"DebitNote":  {"DebitNoteTypeCode", "DebitNoteLine", "RequestedMonetaryTotal"},
}

// parseUBL extrae los datos de la factura. ok=false si el XML no es un documento UBL conocido
// (p. ej. ApplicationResponse de la DIAN).
func parseUBL(content []byte) (onboarding.RawInvoice, bool, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return onboarding.RawInvoice{}, false, fmt.Errorf("parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return onboarding.RawInvoice{}, false, fmt.Errorf("documento sin raíz")
	}
	if localName(root) == "AttachedDocument" {
		embedded := strings.TrimSpace(text(root, "Attachment", "ExternalReference", "Description"))
		if embedded == "" {
			return onboarding.RawInvoice{}, false, nil
		}
		inv, ok, err := parseUBL([]byte(embedded))
		if err != nil {
			return inv, false, fmt.Errorf("documento embebido: %w", err)
		}
		return inv, ok, nil
	}

	kind, known := ublDocuments[localName(root)]
	if !known {
		return onboarding.RawInvoice{}, false, nil
	}
	inv := onboarding.RawInvoice{
		Number:       text(root, "ID"),
		CUFE:         text(root, "UUID"),
		Date:         text(root, "IssueDate"),
		Total:        text(root, kind.total, "PayableAmount"),
		DocumentType: text(root, kind.typeCode),
	}
	if inv.DocumentType == "" {
		inv.DocumentType = localName(root)
	}

	if party := find(root, "AccountingSupplierParty", "Party"); party != nil {
		if tax := find(party, "PartyTaxScheme"); tax != nil {
			inv.SupplierName = text(tax, "RegistrationName")
			if id := find(tax, "CompanyID"); id != nil {
				inv.NIT = strings.TrimSpace(id.Text())
				if dv := id.SelectAttrValue("schemeID", ""); dv != "" && inv.NIT != "" {
					inv.NIT += "-" + dv
				}
			}
		}
		if inv.SupplierName == "" {
			inv.SupplierName = text(party, "PartyLegalEntity", "RegistrationName")
		}
		if inv.SupplierName == "" {
			inv.SupplierName = text(party, "PartyName", "Name")
		}
	}

	var descs []string
	for _, line := range children(root, kind.line) {
		if d := text(line, "Item", "Description"); d != "" {
			descs = append(descs, d)
		}
	}
	inv.Description = strings.Join(descs, " | ")
	return inv, true, nil
}

// localName etiqueta sin prefijo de espacio de nombres.
func localName(e *etree.Element) string {
	tag := e.Tag
	if i := strings.LastIndex(tag, ":"); i >= 0 {
		tag = tag[i+1:]
	}
	return tag
}

func children(e *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if localName(c) == name {
			out = append(out, c)
		}
	}
	return out
}

// find recorre el camino de hijos por nombre local; nil si algún tramo no existe.
func find(e *etree.Element, pathNames ...string) *etree.Element {
	cur := e
	for _, name := range pathNames {
		next := children(cur, name)
		if len(next) == 0 {
			return nil
		}
		cur = next[0]
	}
	return cur
}

func text(e *etree.Element, pathNames ...string) string {
	if el := find(e, pathNames...); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}
