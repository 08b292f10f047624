package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "github.com/texlink-oficial/texlink/pkg/domain"
	"github.com/texlink-oficial/texlink/pkg/platform/sentinel"
)

// PostgresStore implements Store on database/sql. Execute wraps the
// read-validate-mutate cycle in a transaction with SELECT ... FOR UPDATE so
// concurrent transitions on the same credential serialize and every history
// entry's FromStatus reflects the true prior state.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const credentialColumns = `
	id, brand_id, supplier_id, tax_id, company_name, trade_name, email, phone,
	contact_name, category, priority, status, created_at, updated_at, completed_at,
	validation_company_status, validation_capital_stock, validation_founded_at,
	validation_validated_at, validation_valid
`

func (s *PostgresStore) Create(ctx context.Context, cred *Credential, entry HistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The partial unique index on (brand_id, tax_id) WHERE status <> 'BLOCKED'
	// backs the one-non-blocked-credential invariant.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (`+credentialColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`, credentialArgs(cred)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert credential: %w", err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID id.CredentialID) (*Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+credentialColumns+` FROM credentials WHERE id = $1
	`, uuid.UUID(credentialID))
	return scanCredential(row)
}

func (s *PostgresStore) FindNonBlocked(ctx context.Context, brandID id.BrandID, taxID string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+credentialColumns+`
		FROM credentials
		WHERE brand_id = $1 AND tax_id = $2 AND status <> $3
	`, uuid.UUID(brandID), taxID, string(StatusBlocked))
	return scanCredential(row)
}

func (s *PostgresStore) Execute(
	ctx context.Context,
	credentialID id.CredentialID,
	validate func(*Credential) error,
	mutate func(*Credential) *HistoryEntry,
) (*Credential, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT `+credentialColumns+` FROM credentials WHERE id = $1 FOR UPDATE
	`, uuid.UUID(credentialID))
	cred, err := scanCredential(row)
	if err != nil {
		return nil, err
	}

	if err := validate(cred); err != nil {
		return nil, err
	}

	entry := mutate(cred)

	if _, err := tx.ExecContext(ctx, `
		UPDATE credentials SET
			supplier_id = $2, tax_id = $3, company_name = $4, trade_name = $5,
			email = $6, phone = $7, contact_name = $8, category = $9, priority = $10,
			status = $11, created_at = $12, updated_at = $13, completed_at = $14,
			validation_company_status = $15, validation_capital_stock = $16,
			validation_founded_at = $17, validation_validated_at = $18, validation_valid = $19
		WHERE id = $1
	`, updateArgs(cred)...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("update credential: %w", err)
	}

	if entry != nil {
		if err := insertHistory(ctx, tx, *entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return cred, nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, credentialID id.CredentialID) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT credential_id, from_status, to_status, performed_by, reason, created_at
		FROM credential_status_history
		WHERE credential_id = $1
		ORDER BY created_at ASC, seq ASC
	`, uuid.UUID(credentialID))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var credID uuid.UUID
		var fromStatus sql.NullString
		if err := rows.Scan(&credID, &fromStatus, &entry.ToStatus, &entry.PerformedBy, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entry.CredentialID = id.CredentialID(credID)
		if fromStatus.Valid {
			from := Status(fromStatus.String)
			entry.FromStatus = &from
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) List(ctx context.Context, query ListQuery) (*PageResult, error) {
	query.Normalize()

	where := []string{"brand_id = $1"}
	args := []any{uuid.UUID(query.BrandID)}

	if len(query.Statuses) > 0 {
		statuses := make([]string, len(query.Statuses))
		for i, status := range query.Statuses {
			statuses[i] = string(status)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if query.Category != "" {
		args = append(args, query.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if query.CreatedFrom != nil {
		args = append(args, *query.CreatedFrom)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if query.CreatedTo != nil {
		args = append(args, *query.CreatedTo)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if query.Search != "" {
		args = append(args, "%"+query.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(tax_id ILIKE $%d OR company_name ILIKE $%d OR trade_name ILIKE $%d OR contact_name ILIKE $%d OR email ILIKE $%d)",
			n, n, n, n, n))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM credentials WHERE "+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count credentials: %w", err)
	}

	direction := "ASC"
	if query.SortDesc {
		direction = "DESC"
	}
	args = append(args, query.Limit, (query.Page-1)*query.Limit)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM credentials WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		credentialColumns, whereClause, sortColumn(query.SortBy), direction, len(args)-1, len(args),
	), args...)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	items := make([]*Credential, 0, query.Limit)
	for rows.Next() {
		cred, err := scanCredentialRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &PageResult{Items: items, Total: total, Page: query.Page, Limit: query.Limit}, nil
}

// sortColumn whitelists ORDER BY targets; query input never reaches SQL text.
func sortColumn(by SortField) string {
	switch by {
	case SortByPriority:
		return "priority"
	case SortByCompanyName:
		return "company_name"
	case SortByUpdatedAt:
		return "updated_at"
	default:
		return "created_at"
	}
}

func (s *PostgresStore) CountByStatus(ctx context.Context, brandID id.BrandID) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM credentials WHERE brand_id = $1 GROUP BY status
	`, uuid.UUID(brandID))
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (s *PostgresStore) CountCreatedSince(ctx context.Context, brandID id.BrandID, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM credentials WHERE brand_id = $1 AND created_at >= $2
	`, uuid.UUID(brandID), since).Scan(&count)
	return count, err
}

func (s *PostgresStore) CountCompletedSince(ctx context.Context, brandID id.BrandID, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM credentials WHERE brand_id = $1 AND completed_at >= $2
	`, uuid.UUID(brandID), since).Scan(&count)
	return count, err
}

func insertHistory(ctx context.Context, tx *sql.Tx, entry HistoryEntry) error {
	var fromStatus any
	if entry.FromStatus != nil {
		fromStatus = string(*entry.FromStatus)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credential_status_history
			(credential_id, from_status, to_status, performed_by, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, uuid.UUID(entry.CredentialID), fromStatus, string(entry.ToStatus), entry.PerformedBy, entry.Reason, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func credentialArgs(cred *Credential) []any {
	return append([]any{uuid.UUID(cred.ID), uuid.UUID(cred.BrandID)}, sharedArgs(cred)...)
}

func updateArgs(cred *Credential) []any {
	return append([]any{uuid.UUID(cred.ID)}, sharedArgs(cred)...)
}

func sharedArgs(cred *Credential) []any {
	var supplierID any
	if cred.SupplierID != nil {
		supplierID = uuid.UUID(*cred.SupplierID)
	}
	var companyStatus, capitalStock, foundedAt, validatedAt, valid any
	if snapshot := cred.LastValidation; snapshot != nil {
		companyStatus = snapshot.CompanyStatus
		capitalStock = snapshot.CapitalStock
		if snapshot.FoundedAt != nil {
			foundedAt = *snapshot.FoundedAt
		}
		validatedAt = snapshot.ValidatedAt
		valid = snapshot.Valid
	}
	return []any{
		supplierID, cred.TaxID, cred.CompanyName, cred.TradeName, cred.Email, cred.Phone,
		cred.ContactName, cred.Category, cred.Priority, string(cred.Status),
		cred.CreatedAt, cred.UpdatedAt, cred.CompletedAt,
		companyStatus, capitalStock, foundedAt, validatedAt, valid,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row *sql.Row) (*Credential, error) {
	cred, err := scanFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return cred, err
}

func scanCredentialRows(rows *sql.Rows) (*Credential, error) {
	return scanFrom(rows)
}

func scanFrom(scanner rowScanner) (*Credential, error) {
	var cred Credential
	var credID, brandID uuid.UUID
	var supplierID uuid.NullUUID
	var completedAt sql.NullTime
	var companyStatus sql.NullString
	var capitalStock sql.NullFloat64
	var foundedAt, validatedAt sql.NullTime
	var valid sql.NullBool

	err := scanner.Scan(
		&credID, &brandID, &supplierID, &cred.TaxID, &cred.CompanyName, &cred.TradeName,
		&cred.Email, &cred.Phone, &cred.ContactName, &cred.Category, &cred.Priority,
		&cred.Status, &cred.CreatedAt, &cred.UpdatedAt, &completedAt,
		&companyStatus, &capitalStock, &foundedAt, &validatedAt, &valid,
	)
	if err != nil {
		return nil, err
	}

	cred.ID = id.CredentialID(credID)
	cred.BrandID = id.BrandID(brandID)
	if supplierID.Valid {
		sid := id.SupplierID(supplierID.UUID)
		cred.SupplierID = &sid
	}
	if completedAt.Valid {
		cred.CompletedAt = &completedAt.Time
	}
	if validatedAt.Valid {
		snapshot := &ValidationSnapshot{
			CompanyStatus: companyStatus.String,
			CapitalStock:  capitalStock.Float64,
			ValidatedAt:   validatedAt.Time,
			Valid:         valid.Bool,
		}
		if foundedAt.Valid {
			snapshot.FoundedAt = &foundedAt.Time
		}
		cred.LastValidation = snapshot
	}
	return &cred, nil
}
