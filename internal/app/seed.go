package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fintrail/audita/internal/codec"
	"github.com/fintrail/audita/internal/diff"
	"github.com/fintrail/audita/internal/fieldval"
	"github.com/fintrail/audita/internal/protection"
	"github.com/fintrail/audita/internal/versionstore"
)

// DefaultFieldSpecs declares the sensitive fields of a customer record and
// who may see them unmasked. Everyone sees names; documents and card data
// are restricted to the compliance auditor role.
func DefaultFieldSpecs() []protection.FieldSpec {
	auditorOnly := []string{"auditor"}
	return []protection.FieldSpec{
		{Name: "cpf", Type: codec.FieldCPF, AllowedViewers: auditorOnly},
		{Name: "cnpj", Type: codec.FieldCNPJ, AllowedViewers: auditorOnly},
		{Name: "telefone", Type: codec.FieldPhone, AllowedViewers: []string{protection.WildcardViewer}},
		{Name: "email", Type: codec.FieldEmail, AllowedViewers: []string{protection.WildcardViewer}},
		{Name: "cartao", Type: codec.FieldCard, AllowedViewers: auditorOnly},
		{Name: "cvv", Type: codec.FieldCVV, AllowedViewers: nil},
	}
}

// seedDemoData loads a small fixed history so the read paths have something
// to serve when the app runs without a database.
func seedDemoData(ctx context.Context, repo versionstore.Repository) error {
	base := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	ana1 := fieldval.Snapshot{
		"nome":     fieldval.String("Ana Souza"),
		"cpf":      fieldval.String("12345678901"),
		"email":    fieldval.String("ana.souza@example.com.br"),
		"telefone": fieldval.String("11999998888"),
	}
	ana2 := ana1.Clone()
	ana2["nome"] = fieldval.String("Ana Souza Lima")

	ltda := fieldval.Snapshot{
		"nome": fieldval.String("Comércio Brasil LTDA"),
		"cnpj": fieldval.String("12345678000190"),
	}

	entries := []*versionstore.VersionEntry{
		{
			SubjectID:  "cliente-001",
			Operation:  diff.OperationCreate,
			Next:       ana1,
			Changed:    diff.AllFields(),
			ActorID:    "sistema",
			Reason:     "cadastro inicial",
			OccurredAt: base,
		},
		{
			SubjectID:  "cliente-001",
			Operation:  diff.OperationUpdate,
			Previous:   ana1,
			Next:       ana2,
			Changed:    diff.Fields("nome"),
			ActorID:    "operador-17",
			Reason:     "correção cadastral",
			OccurredAt: base.AddDate(0, 1, 2),
		},
		{
			SubjectID:  "cliente-002",
			Operation:  diff.OperationCreate,
			Next:       ltda,
			Changed:    diff.AllFields(),
			ActorID:    "sistema",
			OccurredAt: base.AddDate(0, 0, 5),
		},
	}

	for _, e := range entries {
		e.ID = uuid.NewString()
		if err := repo.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
