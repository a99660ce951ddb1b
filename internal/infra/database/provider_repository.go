package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xavierca1/npi-leads/internal/entity"
)

const providerColumns = `id, npi, enumeration_type, first_name, last_name, organization_name,
	city, state, postal_code, phone, email, taxonomy,
	primary_address, mailing_address, raw_data, created_at, updated_at`

const providerColumnCount = 17

type ProviderRepository struct {
	DB *sql.DB
}

func NewProviderRepository(db *sql.DB) *ProviderRepository {
	return &ProviderRepository{DB: db}
}

// FindExistingByNPI resolves provider ids for the given NPIs in one query.
func (r *ProviderRepository) FindExistingByNPI(ctx context.Context, npis []string) (map[string]string, error) {
	existing := make(map[string]string, len(npis))
	if len(npis) == 0 {
		return existing, nil
	}

	query := `SELECT npi, id FROM providers WHERE npi IN (` + placeholders(1, len(npis)) + `)`
	rows, err := r.DB.QueryContext(ctx, query, stringArgs(npis)...)
	if err != nil {
		return nil, fmt.Errorf("find providers by npi: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var npi, id string
		if err := rows.Scan(&npi, &id); err != nil {
			return nil, err
		}
		existing[npi] = id
	}
	return existing, rows.Err()
}

// CreateWithLeads inserts providers and their leads in a single transaction.
func (r *ProviderRepository) CreateWithLeads(ctx context.Context, items []entity.ProviderLead) error {
	if len(items) == 0 {
		return nil
	}

	providers := make([]*entity.Provider, 0, len(items))
	leads := make([]*entity.Lead, 0, len(items))
	for _, item := range items {
		providers = append(providers, item.Provider)
		if item.Lead != nil {
			leads = append(leads, item.Lead)
		}
	}

	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := insertProviders(ctx, tx, providers); err != nil {
			return err
		}
		return insertLeads(ctx, tx, leads)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create providers: %w", entity.ErrDuplicateProvider)
		}
		return fmt.Errorf("create providers: %w", err)
	}
	return nil
}

// UpdateBatch overwrites the mutable fields of existing providers, keyed by NPI.
func (r *ProviderRepository) UpdateBatch(ctx context.Context, providers []*entity.Provider) error {
	if len(providers) == 0 {
		return nil
	}

	query := `
		UPDATE providers SET
			enumeration_type = $2,
			first_name = $3,
			last_name = $4,
			organization_name = $5,
			city = $6,
			state = $7,
			postal_code = $8,
			phone = $9,
			email = $10,
			taxonomy = $11,
			primary_address = $12,
			mailing_address = $13,
			raw_data = $14,
			updated_at = $15
		WHERE npi = $1
	`

	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range providers {
			if _, err := stmt.ExecContext(ctx,
				p.NPI,
				p.EnumerationType,
				nullString(p.FirstName),
				nullString(p.LastName),
				nullString(p.OrganizationName),
				nullString(p.City),
				nullString(p.State),
				nullString(p.PostalCode),
				nullString(p.Phone),
				nullString(p.Email),
				nullString(p.Taxonomy),
				p.PrimaryAddress,
				p.MailingAddress,
				p.RawData,
				p.UpdatedAt,
			); err != nil {
				return fmt.Errorf("update provider %s: %w", p.NPI, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update providers: %w", err)
	}
	return nil
}

// FindWithoutLeads returns the subset of providerIDs that have no lead at all.
func (r *ProviderRepository) FindWithoutLeads(ctx context.Context, providerIDs []string) ([]string, error) {
	if len(providerIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT p.id FROM providers p
		WHERE p.id IN (` + placeholders(1, len(providerIDs)) + `)
		  AND NOT EXISTS (SELECT 1 FROM leads l WHERE l.provider_id = p.id)
		ORDER BY p.id
	`
	return r.selectIDs(ctx, query, stringArgs(providerIDs)...)
}

func (r *ProviderRepository) CreateLeads(ctx context.Context, leads []*entity.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		return insertLeads(ctx, tx, leads)
	})
	if err != nil {
		return fmt.Errorf("create leads: %w", err)
	}
	return nil
}

// FilterExistingIDs drops ids that do not belong to a stored provider.
func (r *ProviderRepository) FilterExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id FROM providers WHERE id IN (` + placeholders(1, len(ids)) + `) ORDER BY id`
	return r.selectIDs(ctx, query, stringArgs(ids)...)
}

// ListIDsAfter pages through provider ids in keyset order.
func (r *ProviderRepository) ListIDsAfter(ctx context.Context, afterID string, limit int) ([]string, error) {
	return r.selectIDs(ctx, `SELECT id FROM providers WHERE id > $1 ORDER BY id LIMIT $2`, afterID, limit)
}

func (r *ProviderRepository) selectIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select provider ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertProviders(ctx context.Context, q querier, providers []*entity.Provider) error {
	values := make([]string, 0, len(providers))
	args := make([]any, 0, len(providers)*providerColumnCount)
	for i, p := range providers {
		values = append(values, "("+placeholders(i*providerColumnCount+1, providerColumnCount)+")")
		args = append(args,
			p.ID,
			p.NPI,
			p.EnumerationType,
			nullString(p.FirstName),
			nullString(p.LastName),
			nullString(p.OrganizationName),
			nullString(p.City),
			nullString(p.State),
			nullString(p.PostalCode),
			nullString(p.Phone),
			nullString(p.Email),
			nullString(p.Taxonomy),
			p.PrimaryAddress,
			p.MailingAddress,
			p.RawData,
			p.CreatedAt,
			p.UpdatedAt,
		)
	}
	query := `INSERT INTO providers (` + providerColumns + `) VALUES ` + strings.Join(values, ", ")
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return nil
}

func insertLeads(ctx context.Context, q querier, leads []*entity.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	const cols = 5
	values := make([]string, 0, len(leads))
	args := make([]any, 0, len(leads)*cols)
	for i, l := range leads {
		values = append(values, "("+placeholders(i*cols+1, cols)+")")
		args = append(args, l.ID, l.ProviderID, l.Status, l.CreatedAt, l.UpdatedAt)
	}
	query := `INSERT INTO leads (id, provider_id, status, created_at, updated_at) VALUES ` + strings.Join(values, ", ")
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert leads: %w", err)
	}
	return nil
}
