package registry

import (
	"fmt"
	"strings"

	"github.com/jhoicas/onboarding-contable/internal/domain"
	"github.com/jhoicas/onboarding-contable/internal/domain/audit"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/pkg/dian"
)

// Reglas registradas en la auditoría.
const (
	RuleExactNIT       = "exactNIT"
	RuleNameSimilarity = "nameSimilarity"
	RuleNewNIT         = "newNIT"
	RuleProvisional    = "provisional"
	RuleAbsorbed       = "absorbProvisional"
)

// RegisterSupplier registra una observación de un proveedor. Con NIT válido la identidad
// es la base del NIT; sin NIT se compara la razón social contra los existentes y solo se
// fusiona por encima del umbral, si no se crea un proveedor provisional.
func (r *Registry) RegisterSupplier(nit, name string, attrs entity.SupplierAttrs) (entity.SupplierID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writable(); err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)

	if strings.TrimSpace(nit) != "" {
		subject := attrs.Source
		if subject == "" {
			subject = name
		}
		n, err := r.norm.NIT(nit, subject)
		if err == nil {
			return r.registerWithNIT(n.Base, n.String(), n.Mismatch(), name, attrs), nil
		}
		// NIT ilegible: se trata como ausente y se resuelve por nombre
	}
	if NameKey(name) == "" {
		return "", fmt.Errorf("%w: proveedor sin NIT ni razón social", domain.ErrInvalidInput)
	}
	return r.registerByName(name, attrs), nil
}

func (r *Registry) registerWithNIT(base, canonical string, mismatch bool, name string, attrs entity.SupplierAttrs) entity.SupplierID {
	st := r.st
	id := entity.SupplierID(base)
	if s, ok := st.suppliers[id]; ok {
		if mismatch {
			s.Flags.Add(entity.FlagCheckDigitMismatch)
		}
		r.observe(s, name, attrs, RuleExactNIT, 1)
		r.absorbProvisional(s, name)
		return id
	}

	// NIT nuevo cuya razón social se parece a la de otro NIT: se avisa, nunca se fusiona.
	if NameKey(name) != "" {
		for _, otherID := range st.supplierOrder {
			other := st.suppliers[otherID]
			if other.NIT == "" {
				continue
			}
			if score := st.similarityTo(other, name); score >= st.threshold {
				r.event(audit.KindAmbiguousMerge, RuleNameSimilarity, string(id), audit.Score(score), map[string]string{
					"name":          name,
					"similar_to":    string(otherID),
					"similar_name":  other.LegalName,
					"resolution":    "kept separate",
					"source":        attrs.Source,
					"canonical_nit": canonical,
				})
			}
		}
	}

	s := &entity.Supplier{ID: id, NIT: canonical, LegalName: name}
	if mismatch {
		s.Flags.Add(entity.FlagCheckDigitMismatch)
	}
	r.create(s, attrs, RuleNewNIT)
	r.absorbProvisional(s, name)
	return id
}

// absorbProvisional funde en s los proveedores provisionales (sin NIT) cuya razón social
// alcanza el umbral contra name. Pasan alias, fuentes y campos vacíos, y las búsquedas por
// nombre que apuntaban al provisional quedan apuntando a s. El registro queda igual llegue
// la fila sin NIT antes o después de la que trae el NIT.
func (r *Registry) absorbProvisional(s *entity.Supplier, name string) {
	st := r.st
	if NameKey(name) == "" {
		return
	}
	kept := make([]entity.SupplierID, 0, len(st.supplierOrder))
	for _, pid := range st.supplierOrder {
		p := st.suppliers[pid]
		if pid == s.ID || p.NIT != "" || !p.Flags.Has(entity.FlagProvisional) {
			kept = append(kept, pid)
			continue
		}
		score := st.similarityTo(p, name)
		if score < st.threshold {
			kept = append(kept, pid)
			continue
		}
		for _, a := range p.Aliases {
			if !s.HasAlias(a) {
				s.Aliases = append(s.Aliases, a)
			}
		}
		r.fill(s, entity.SupplierAttrs{Branch: p.Branch, EconomicActivity: p.EconomicActivity, City: p.City})
		if len(s.FiscalResponsibilities) == 0 && len(p.FiscalResponsibilities) > 0 {
			s.FiscalResponsibilities = append(s.FiscalResponsibilities, p.FiscalResponsibilities...)
			if p.Flags.Has(entity.FlagUnknownFiscalCode) {
				s.Flags.Add(entity.FlagUnknownFiscalCode)
			}
		}
		for _, src := range p.Sources {
			r.fill(s, entity.SupplierAttrs{Source: src})
		}
		for key, owner := range st.byNameKey {
			if owner == pid {
				st.byNameKey[key] = s.ID
			}
		}
		delete(st.suppliers, pid)
		st.version++
		r.event(audit.KindRegistryMerge, RuleAbsorbed, string(s.ID), audit.Score(score), map[string]string{
			"absorbed":  string(pid),
			"name":      p.LegalName,
			"merged_to": s.LegalName,
			"threshold": fmt.Sprintf("%.2f", st.threshold),
		})
	}
	st.supplierOrder = kept
}

func (r *Registry) registerByName(name string, attrs entity.SupplierAttrs) entity.SupplierID {
	st := r.st
	if id, score, ok := st.bestByName(name); ok {
		s := st.suppliers[id]
		if !s.HasAlias(name) && s.LegalName != name {
			r.event(audit.KindRegistryMerge, RuleNameSimilarity, string(id), audit.Score(score), map[string]string{
				"name":      name,
				"merged_to": s.LegalName,
				"threshold": fmt.Sprintf("%.2f", st.threshold),
				"source":    attrs.Source,
			})
		}
		r.observe(s, name, attrs, RuleNameSimilarity, score)
		return id
	}
	st.provisionalSeq++
	id := entity.SupplierID(fmt.Sprintf("SIN-NIT-%04d", st.provisionalSeq))
	s := &entity.Supplier{ID: id, LegalName: name, Flags: entity.Flags{entity.FlagProvisional}}
	r.create(s, attrs, RuleProvisional)
	return id
}

func (r *Registry) create(s *entity.Supplier, attrs entity.SupplierAttrs, rule string) {
	st := r.st
	if s.LegalName != "" {
		s.Aliases = []string{s.LegalName}
	}
	r.fill(s, attrs)
	st.suppliers[s.ID] = s
	st.supplierOrder = append(st.supplierOrder, s.ID)
	if key := NameKey(s.LegalName); key != "" {
		if _, taken := st.byNameKey[key]; !taken {
			st.byNameKey[key] = s.ID
		}
	}
	st.version++
	fields := map[string]string{"name": s.LegalName, "source": attrs.Source}
	if s.NIT != "" {
		fields["nit"] = s.NIT
	}
	if len(s.Flags) > 0 {
		fields["flags"] = strings.Join(s.Flags.Strings(), ",")
	}
	r.event(audit.KindRegistryCreate, rule, string(s.ID), nil, fields)
}

// observe agrega alias, fuente y campos opcionales vacíos a un proveedor existente.
func (r *Registry) observe(s *entity.Supplier, name string, attrs entity.SupplierAttrs, rule string, score float64) {
	if s.LegalName == "" {
		s.LegalName = name
	}
	if name != "" && !s.HasAlias(name) {
		s.Aliases = append(s.Aliases, name)
		if key := NameKey(name); key != "" {
			if _, taken := r.st.byNameKey[key]; !taken {
				r.st.byNameKey[key] = s.ID
			}
		}
		r.event(audit.KindRegistryAlias, rule, string(s.ID), audit.Score(score), map[string]string{
			"alias":  name,
			"source": attrs.Source,
		})
	}
	r.fill(s, attrs)
	r.st.version++
}

// fill completa atributos opcionales solo si están vacíos; nunca sobrescribe.
func (r *Registry) fill(s *entity.Supplier, attrs entity.SupplierAttrs) {
	if s.Branch == "" {
		s.Branch = strings.TrimSpace(attrs.Branch)
	}
	if s.EconomicActivity == "" {
		s.EconomicActivity = strings.TrimSpace(attrs.EconomicActivity)
	}
	if s.City == "" {
		s.City = strings.TrimSpace(attrs.City)
	}
	if len(s.FiscalResponsibilities) == 0 && len(attrs.FiscalResponsibilities) > 0 {
		for _, raw := range attrs.FiscalResponsibilities {
			for _, code := range dian.SplitFiscalCodes(raw) {
				s.FiscalResponsibilities = append(s.FiscalResponsibilities, code)
				if !dian.ValidFiscalResponsibilityCodes[code] {
					s.Flags.Add(entity.FlagUnknownFiscalCode)
				}
			}
		}
	}
	if attrs.Source != "" {
		found := false
		for _, src := range s.Sources {
			if src == attrs.Source {
				found = true
				break
			}
		}
		if !found {
			s.Sources = append(s.Sources, attrs.Source)
		}
	}
}

// RegisterAlias agrega una grafía de razón social a un proveedor existente.
func (r *Registry) RegisterAlias(id entity.SupplierID, rawName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writable(); err != nil {
		return err
	}
	s, ok := r.st.suppliers[id]
	if !ok {
		return fmt.Errorf("proveedor %s: %w", id, domain.ErrNotFound)
	}
	rawName = strings.TrimSpace(rawName)
	if rawName == "" {
		return fmt.Errorf("%w: alias vacío", domain.ErrInvalidInput)
	}
	r.observe(s, rawName, entity.SupplierAttrs{}, "explicit", 1)
	return nil
}
