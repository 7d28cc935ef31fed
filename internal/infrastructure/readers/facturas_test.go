package readers_test

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/onboarding-contable/internal/infrastructure/readers"
)

const invoiceXML = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
	<cbc:ID>FV-1234</cbc:ID>
	<cbc:UUID schemeName="CUFE-SHA384">cufe-abc123</cbc:UUID>
	<cbc:IssueDate>2024-03-10</cbc:IssueDate>
	<cbc:InvoiceTypeCode>01</cbc:InvoiceTypeCode>
	<cac:AccountingSupplierParty>
		<cac:Party>
			<cac:PartyTaxScheme>
				<cbc:RegistrationName>Ferretería El Tornillo S.A.S.</cbc:RegistrationName>
				<cbc:CompanyID schemeID="8" schemeName="31">900123456</cbc:CompanyID>
			</cac:PartyTaxScheme>
		</cac:Party>
	</cac:AccountingSupplierParty>
	<cac:LegalMonetaryTotal>
		<cbc:PayableAmount currencyID="COP">1190000.00</cbc:PayableAmount>
	</cac:LegalMonetaryTotal>
	<cac:InvoiceLine><cac:Item><cbc:Description>Tornillos acero</cbc:Description></cac:Item></cac:InvoiceLine>
	<cac:InvoiceLine><cac:Item><cbc:Description>Tuercas</cbc:Description></cac:Item></cac:InvoiceLine>
</Invoice>`

func attachedDocument(inner string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<AttachedDocument xmlns="urn:oasis:names:specification:ubl:schema:xsd:AttachedDocument-2"
	xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
	<cbc:ID>AD-77</cbc:ID>
	<cac:Attachment>
		<cac:ExternalReference>
			<cbc:MimeCode>text/xml</cbc:MimeCode>
			<cbc:Description><![CDATA[` + inner + `]]></cbc:Description>
		</cac:ExternalReference>
	</cac:Attachment>
</AttachedDocument>`
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := zw.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// ─── XML UBL ──────────────────────────────────────────────────────────────────

func TestReadInvoiceZip_FacturaUBL(t *testing.T) {
	data := zipOf(t, map[string]string{
		"FV-1234.xml": invoiceXML,
		"FV-1234.pdf": "%PDF-1.4",
	})
	invs, err := readers.ReadInvoiceZip(bytes.NewReader(data), "FV-1234.zip")
	require.NoError(t, err)
	require.Len(t, invs, 1)

	inv := invs[0]
	assert.Equal(t, "FV-1234.zip", inv.ZipName)
	assert.Equal(t, "FV-1234.xml", inv.FileName)
	assert.Equal(t, "FV-1234", inv.Number)
	assert.Equal(t, "900123456-8", inv.NIT)
	assert.Equal(t, "Ferretería El Tornillo S.A.S.", inv.SupplierName)
	assert.Equal(t, "2024-03-10", inv.Date)
	assert.Equal(t, "1190000.00", inv.Total)
	assert.Equal(t, "cufe-abc123", inv.CUFE)
	assert.Equal(t, "01", inv.DocumentType)
	assert.Equal(t, "Tornillos acero | Tuercas", inv.Description)
}

func TestReadInvoiceZip_AttachedDocumentConFacturaEmbebida(t *testing.T) {
	data := zipOf(t, map[string]string{"ad.xml": attachedDocument(invoiceXML)})
	invs, err := readers.ReadInvoiceZip(bytes.NewReader(data), "facturas.zip")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, "FV-1234", invs[0].Number, "el número es el de la factura, no el del contenedor")
	assert.Equal(t, "900123456-8", invs[0].NIT)
	assert.Equal(t, "ad.xml", invs[0].FileName)
}

func TestReadInvoiceZip_XMLSinNumeroUsaNombreDelZip(t *testing.T) {
	xml := strings.Replace(invoiceXML, "<cbc:ID>FV-1234</cbc:ID>", "", 1)
	data := zipOf(t, map[string]string{"f.xml": xml})
	invs, err := readers.ReadInvoiceZip(bytes.NewReader(data), "fe-555.zip")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, "FE-555", invs[0].Number)
}

func TestReadInvoiceZip_NotaCredito(t *testing.T) {
	xml := `<CreditNote xmlns:cac="urn:cac" xmlns:cbc="urn:cbc">
		<cbc:ID>NC-9</cbc:ID>
		<cbc:CreditNoteTypeCode>91</cbc:CreditNoteTypeCode>
		<cac:LegalMonetaryTotal><cbc:PayableAmount>5000</cbc:PayableAmount></cac:LegalMonetaryTotal>
		<cac:CreditNoteLine><cac:Item><cbc:Description>Devolución</cbc:Description></cac:Item></cac:CreditNoteLine>
	</CreditNote>`
	invs, err := readers.ReadInvoiceZip(bytes.NewReader(zipOf(t, map[string]string{"nc.xml": xml})), "nc.zip")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, "91", invs[0].DocumentType)
	assert.Equal(t, "5000", invs[0].Total)
	assert.Equal(t, "Devolución", invs[0].Description)
}

// ─── ZIP solo con PDF ─────────────────────────────────────────────────────────

func TestReadInvoiceZip_SoloPDFEligeElMasParecido(t *testing.T) {
	data := zipOf(t, map[string]string{
		"otro.pdf":  "%PDF",
		"FE998.pdf": "%PDF",
	})
	invs, err := readers.ReadInvoiceZip(bytes.NewReader(data), "FE-998.zip")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, "FE998.pdf", invs[0].FileName)
	assert.Equal(t, "FE-998", invs[0].Number)
	assert.Empty(t, invs[0].NIT)
}

func TestReadInvoiceZip_NombreSinDigitosNoDaNumero(t *testing.T) {
	data := zipOf(t, map[string]string{"a.pdf": "%PDF"})
	invs, err := readers.ReadInvoiceZip(bytes.NewReader(data), "facturas.zip")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Empty(t, invs[0].Number)
}

func TestReadInvoiceZip_RespuestaDIANSeIgnora(t *testing.T) {
	data := zipOf(t, map[string]string{
		"respuesta.xml": `<ApplicationResponse><ID>1</ID></ApplicationResponse>`,
		"FE-1.pdf":      "%PDF",
	})
	invs, err := readers.ReadInvoiceZip(bytes.NewReader(data), "FE-1.zip")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, "FE-1.pdf", invs[0].FileName)
}

func TestReadInvoiceZip_Errores(t *testing.T) {
	_, err := readers.ReadInvoiceZip(strings.NewReader("no es zip"), "x.zip")
	assert.Error(t, err)

	data := zipOf(t, map[string]string{"roto.xml": "<Invoice><cbc:ID>"})
	_, err = readers.ReadInvoiceZip(bytes.NewReader(data), "x.zip")
	assert.Error(t, err)
}
