package readers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
	"github.com/jhoicas/onboarding-contable/internal/domain"
	"github.com/jhoicas/onboarding-contable/pkg/logger"
)

// Kind tipo de archivo de entrada.
type Kind string

const (
	KindSuppliers Kind = "terceros"
	KindLedger    Kind = "auxiliar"
	KindCostModel Kind = "causacion"
	KindPUC       Kind = "puc"
	KindProducts  Kind = "productos"
	KindInvoices  Kind = "facturas"
)

// dirLayout carpeta de cada tipo dentro del directorio del cliente y la extensión aceptada.
var dirLayout = []struct {
	dir  string
	kind Kind
	ext  string
}{
	{"modelos_terceros", KindSuppliers, ".csv"},
	{"modelos_causacion", KindCostModel, ".xlsx"},
	{"pucs", KindPUC, ".xlsx"},
	{"libros_auxiliares", KindLedger, ".csv"},
	{"productos", KindProducts, ".csv"},
	{"facturas", KindInvoices, ".zip"},
}

// ParseKind valida el tipo recibido (p. ej. el nombre del campo multipart).
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, l := range dirLayout {
		if l.kind == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: tipo de archivo desconocido %q", domain.ErrInvalidInput, s)
}

// Add lee un archivo y agrega sus filas al flujo correspondiente de la entrada.
func Add(in *onboarding.Input, kind Kind, name string, r io.Reader) error {
	switch kind {
	case KindSuppliers:
		rows, err := ReadSuppliers(r, name)
		if err != nil {
			return err
		}
		in.Suppliers = append(in.Suppliers, rows...)
	case KindLedger:
		rows, err := ReadLedger(r, name)
		if err != nil {
			return err
		}
		in.Ledger = append(in.Ledger, rows...)
	case KindCostModel:
		rows, items, err := ReadCostModel(r, name)
		if err != nil {
			return err
		}
		in.CostModel = append(in.CostModel, rows...)
		in.PUCCatalog = append(in.PUCCatalog, items...)
	case KindPUC:
		rows, err := ReadPUCCatalog(r, name)
		if err != nil {
			return err
		}
		in.PUCCatalog = append(in.PUCCatalog, rows...)
	case KindProducts:
		rows, err := ReadProducts(r, name)
		if err != nil {
			return err
		}
		in.Products = append(in.Products, rows...)
	case KindInvoices:
		rows, err := ReadInvoiceZip(r, name)
		if err != nil {
			return err
		}
		in.Invoices = append(in.Invoices, rows...)
	default:
		return fmt.Errorf("%w: tipo de archivo desconocido %q", domain.ErrInvalidInput, kind)
	}
	return nil
}

// LoadDir arma la entrada de una corrida desde el directorio del cliente:
//
//	<dir>/modelos_terceros/*.csv
//	<dir>/modelos_causacion/*.xlsx
//	<dir>/pucs/*.xlsx
//	<dir>/libros_auxiliares/*.csv
//	<dir>/productos/*.csv
//	<dir>/facturas/*.zip
//
// Las carpetas ausentes se omiten. Los archivos se leen en orden de nombre.
func LoadDir(dir, clientID string, log *logger.Logger) (onboarding.Input, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("reader")
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return onboarding.Input{}, fmt.Errorf("%w: %s no es un directorio", domain.ErrInvalidInput, dir)
	}

	in := onboarding.Input{ClientID: clientID}
	for _, l := range dirLayout {
		sub := filepath.Join(dir, l.dir)
		entries, err := os.ReadDir(sub)
		if os.IsNotExist(err) {
			log.Debug().Str("dir", sub).Msg("carpeta ausente")
			continue
		}
		if err != nil {
			return onboarding.Input{}, fmt.Errorf("readers: listar %s: %w", sub, err)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), l.ext) {
				continue
			}
			if err := addFile(&in, l.kind, filepath.Join(sub, e.Name()), e.Name()); err != nil {
				return onboarding.Input{}, err
			}
		}
	}
	log.Info().
		Str("client_id", clientID).
		Int("suppliers", len(in.Suppliers)).
		Int("ledger", len(in.Ledger)).
		Int("cost_model", len(in.CostModel)).
		Int("puc", len(in.PUCCatalog)).
		Int("products", len(in.Products)).
		Int("invoices", len(in.Invoices)).
		Msg("entrada cargada")
	return in, nil
}

func addFile(in *onboarding.Input, kind Kind, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("readers: abrir %s: %w", path, err)
	}
	defer f.Close()
	return Add(in, kind, name, f)
}
