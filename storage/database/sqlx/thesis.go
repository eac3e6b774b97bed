package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/skripsi/core/progress"
	"github.com/trezcool/skripsi/core/thesis"
)

const (
	proposalColumns = `p.id, p.student_id, p.title, p.abstract, p.primary_supervisor_id, p.secondary_supervisor_id,
	p.status, p.note, p.created_at, p.updated_at`
	guidanceColumns = `id, proposal_id, supervisor_id, held_on, topic, notes, attended, status, feedback, created_at, updated_at`
	seminarColumns  = `id, proposal_id, status, approved_by_primary, approved_by_secondary, scheduled_at, room, note,
	created_at, updated_at`
	documentColumns = `id, proposal_id, kind, file_path, status, note, verified_by, verified_at, uploaded_at, updated_at`
	defenseColumns  = `id, proposal_id, status, scheduled_at, room, created_at, updated_at`
)

// Rows

type proposalRow struct {
	ID                    string    `db:"id"`
	StudentID             string    `db:"student_id"`
	Title                 string    `db:"title"`
	Abstract              string    `db:"abstract"`
	PrimarySupervisorID   string    `db:"primary_supervisor_id"`
	SecondarySupervisorID string    `db:"secondary_supervisor_id"`
	Status                string    `db:"status"`
	Note                  string    `db:"note"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

func (r proposalRow) toProposal() thesis.Proposal {
	return thesis.Proposal{
		ID:                    r.ID,
		StudentID:             r.StudentID,
		Title:                 r.Title,
		Abstract:              r.Abstract,
		PrimarySupervisorID:   r.PrimarySupervisorID,
		SecondarySupervisorID: r.SecondarySupervisorID,
		Status:                r.Status,
		Note:                  r.Note,
		CreatedAt:             r.CreatedAt.UTC(),
		UpdatedAt:             r.UpdatedAt.UTC(),
	}
}

type guidanceRow struct {
	ID           string    `db:"id"`
	ProposalID   string    `db:"proposal_id"`
	SupervisorID string    `db:"supervisor_id"`
	HeldOn       time.Time `db:"held_on"`
	Topic        string    `db:"topic"`
	Notes        string    `db:"notes"`
	Attended     bool      `db:"attended"`
	Status       string    `db:"status"`
	Feedback     string    `db:"feedback"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r guidanceRow) toSession() thesis.GuidanceSession {
	return thesis.GuidanceSession{
		ID:           r.ID,
		ProposalID:   r.ProposalID,
		SupervisorID: r.SupervisorID,
		HeldOn:       r.HeldOn.UTC(),
		Topic:        r.Topic,
		Notes:        r.Notes,
		Attended:     r.Attended,
		Status:       r.Status,
		Feedback:     r.Feedback,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type seminarRow struct {
	ID                  string    `db:"id"`
	ProposalID          string    `db:"proposal_id"`
	Status              string    `db:"status"`
	ApprovedByPrimary   bool      `db:"approved_by_primary"`
	ApprovedBySecondary bool      `db:"approved_by_secondary"`
	ScheduledAt         null.Time `db:"scheduled_at"`
	Room                string    `db:"room"`
	Note                string    `db:"note"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func newSeminarRow(s thesis.SeminarRequest) seminarRow {
	return seminarRow{
		ID:                  s.ID,
		ProposalID:          s.ProposalID,
		Status:              s.Status,
		ApprovedByPrimary:   s.ApprovedByPrimary,
		ApprovedBySecondary: s.ApprovedBySecondary,
		ScheduledAt:         null.TimeFromPtr(s.ScheduledAt),
		Room:                s.Room,
		Note:                s.Note,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func (r seminarRow) toRequest() thesis.SeminarRequest {
	return thesis.SeminarRequest{
		ID:                  r.ID,
		ProposalID:          r.ProposalID,
		Status:              r.Status,
		ApprovedByPrimary:   r.ApprovedByPrimary,
		ApprovedBySecondary: r.ApprovedBySecondary,
		ScheduledAt:         utcPtr(r.ScheduledAt),
		Room:                r.Room,
		Note:                r.Note,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
	}
}

type documentRow struct {
	ID         string      `db:"id"`
	ProposalID string      `db:"proposal_id"`
	Kind       string      `db:"kind"`
	FilePath   string      `db:"file_path"`
	Status     string      `db:"status"`
	Note       string      `db:"note"`
	VerifiedBy null.String `db:"verified_by"`
	VerifiedAt null.Time   `db:"verified_at"`
	UploadedAt time.Time   `db:"uploaded_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func newDocumentRow(d thesis.SeminarDocument) documentRow {
	return documentRow{
		ID:         d.ID,
		ProposalID: d.ProposalID,
		Kind:       d.Kind,
		FilePath:   d.FilePath,
		Status:     d.Status,
		Note:       d.Note,
		VerifiedBy: null.NewString(d.VerifiedBy, d.VerifiedBy != ""),
		VerifiedAt: null.TimeFromPtr(d.VerifiedAt),
		UploadedAt: d.UploadedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (r documentRow) toDocument() thesis.SeminarDocument {
	return thesis.SeminarDocument{
		ID:         r.ID,
		ProposalID: r.ProposalID,
		Kind:       r.Kind,
		FilePath:   r.FilePath,
		Status:     r.Status,
		Note:       r.Note,
		VerifiedBy: r.VerifiedBy.String,
		VerifiedAt: utcPtr(r.VerifiedAt),
		UploadedAt: r.UploadedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type defenseRow struct {
	ID          string    `db:"id"`
	ProposalID  string    `db:"proposal_id"`
	Status      string    `db:"status"`
	ScheduledAt null.Time `db:"scheduled_at"`
	Room        string    `db:"room"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func newDefenseRow(d thesis.DefenseRequest) defenseRow {
	return defenseRow{
		ID:          d.ID,
		ProposalID:  d.ProposalID,
		Status:      d.Status,
		ScheduledAt: null.TimeFromPtr(d.ScheduledAt),
		Room:        d.Room,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (r defenseRow) toRequest() thesis.DefenseRequest {
	return thesis.DefenseRequest{
		ID:          r.ID,
		ProposalID:  r.ProposalID,
		Status:      r.Status,
		ScheduledAt: utcPtr(r.ScheduledAt),
		Room:        r.Room,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

// factsRow is one proposal joined with its latest seminar request and aggregated counts.
type factsRow struct {
	proposalRow
	SeminarID           null.String `db:"seminar_id"`
	SeminarStatus       null.String `db:"seminar_status"`
	ApprovedByPrimary   null.Bool   `db:"approved_by_primary"`
	ApprovedBySecondary null.Bool   `db:"approved_by_secondary"`
	SeminarScheduledAt  null.Time   `db:"seminar_scheduled_at"`
	SeminarRoom         null.String `db:"seminar_room"`
	SeminarNote         null.String `db:"seminar_note"`
	SeminarCreatedAt    null.Time   `db:"seminar_created_at"`
	SeminarUpdatedAt    null.Time   `db:"seminar_updated_at"`
	HasDefense          bool        `db:"has_defense"`
	UploadedDocs        int         `db:"uploaded_docs"`
	VerifiedDocs        int         `db:"verified_docs"`
}

// sessionRow is a guidance session reduced to what the eligibility tally needs.
type sessionRow struct {
	ProposalID   string `db:"proposal_id"`
	SupervisorID string `db:"supervisor_id"`
	Attended     bool   `db:"attended"`
	Status       string `db:"status"`
}

func (r sessionRow) toSession() progress.Session {
	return thesis.GuidanceSession{SupervisorID: r.SupervisorID, Attended: r.Attended, Status: r.Status}.Session()
}

func (r factsRow) toFacts() thesis.ProgressFacts {
	f := thesis.ProgressFacts{
		Proposal:     r.toProposal(),
		HasDefense:   r.HasDefense,
		UploadedDocs: r.UploadedDocs,
		VerifiedDocs: r.VerifiedDocs,
	}
	if r.SeminarID.Valid {
		f.LatestSeminar = &thesis.SeminarRequest{
			ID:                  r.SeminarID.String,
			ProposalID:          r.ID,
			Status:              r.SeminarStatus.String,
			ApprovedByPrimary:   r.ApprovedByPrimary.Bool,
			ApprovedBySecondary: r.ApprovedBySecondary.Bool,
			ScheduledAt:         utcPtr(r.SeminarScheduledAt),
			Room:                r.SeminarRoom.String,
			Note:                r.SeminarNote.String,
			CreatedAt:           r.SeminarCreatedAt.Time.UTC(),
			UpdatedAt:           r.SeminarUpdatedAt.Time.UTC(),
		}
	}
	return f
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

// Repository

type thesisRepository struct {
	db *sqlx.DB
}

func NewThesisRepository(db *sqlx.DB) thesis.Repository {
	return &thesisRepository{db: db}
}

func proposalWhere(filter thesis.ProposalFilter) whereClause {
	var where whereClause
	if filter.IDs != nil {
		where.add("p.id::text = ANY(?)", pq.Array(filter.IDs))
	}
	if filter.StudentID != "" {
		where.add("p.student_id::text = ?", filter.StudentID)
	}
	if filter.SupervisorID != "" {
		where.add("(p.primary_supervisor_id::text = ? OR p.secondary_supervisor_id::text = ?)", filter.SupervisorID, filter.SupervisorID)
	}
	if filter.Statuses != nil {
		where.add("p.status = ANY(?)", pq.Array(filter.Statuses))
	}
	if filter.Search != "" {
		where.add("p.title ILIKE ?", "%"+filter.Search+"%")
	}
	return where
}

// Proposals

func (repo *thesisRepository) CreateProposal(ctx context.Context, p thesis.Proposal) (thesis.Proposal, error) {
	p.ID = uuid.NewString()
	_, err := repo.db.ExecContext(ctx, `INSERT INTO proposals
		(id, student_id, title, abstract, primary_supervisor_id, secondary_supervisor_id, status, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.StudentID, p.Title, p.Abstract, p.PrimarySupervisorID, p.SecondarySupervisorID, p.Status, p.Note,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return thesis.Proposal{}, errors.Wrap(err, "inserting proposal")
	}
	return p, nil
}

func (repo *thesisRepository) GetProposal(ctx context.Context, id string) (thesis.Proposal, error) {
	if !validID(id) {
		return thesis.Proposal{}, thesis.ErrNotFound
	}
	var row proposalRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+proposalColumns+" FROM proposals p WHERE p.id = $1", id); err != nil {
		return thesis.Proposal{}, trapNoRowsErr(err, thesis.ErrNotFound)
	}
	return row.toProposal(), nil
}

func (repo *thesisRepository) QueryProposals(ctx context.Context, filter thesis.ProposalFilter) ([]thesis.Proposal, error) {
	where := proposalWhere(filter)
	q := "SELECT " + proposalColumns + " FROM proposals p" + where.String() + " ORDER BY p.created_at DESC, p.id"

	var rows []proposalRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying proposals")
	}
	proposals := make([]thesis.Proposal, 0, len(rows))
	for _, r := range rows {
		proposals = append(proposals, r.toProposal())
	}
	return proposals, nil
}

func (repo *thesisRepository) UpdateProposal(ctx context.Context, p thesis.Proposal) (thesis.Proposal, error) {
	if !validID(p.ID) {
		return thesis.Proposal{}, thesis.ErrNotFound
	}
	err := execOne(ctx, repo.db, thesis.ErrNotFound, `UPDATE proposals SET
		title = ?, abstract = ?, primary_supervisor_id = ?, secondary_supervisor_id = ?, status = ?, note = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Abstract, p.PrimarySupervisorID, p.SecondarySupervisorID, p.Status, p.Note, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return thesis.Proposal{}, errors.Wrap(err, "updating proposal")
	}
	return p, nil
}

// Guidance sessions

func (repo *thesisRepository) CreateGuidanceSession(ctx context.Context, g thesis.GuidanceSession) (thesis.GuidanceSession, error) {
	g.ID = uuid.NewString()
	_, err := repo.db.ExecContext(ctx, `INSERT INTO guidance_sessions (`+guidanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		g.ID, g.ProposalID, g.SupervisorID, g.HeldOn, g.Topic, g.Notes, g.Attended, g.Status, g.Feedback,
		g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return thesis.GuidanceSession{}, errors.Wrap(err, "inserting guidance session")
	}
	return g, nil
}

func (repo *thesisRepository) GetGuidanceSession(ctx context.Context, id string) (thesis.GuidanceSession, error) {
	if !validID(id) {
		return thesis.GuidanceSession{}, thesis.ErrNotFound
	}
	var row guidanceRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+guidanceColumns+" FROM guidance_sessions WHERE id = $1", id); err != nil {
		return thesis.GuidanceSession{}, trapNoRowsErr(err, thesis.ErrNotFound)
	}
	return row.toSession(), nil
}

func (repo *thesisRepository) QueryGuidanceSessions(ctx context.Context, proposalID string) ([]thesis.GuidanceSession, error) {
	sessions := make([]thesis.GuidanceSession, 0)
	if !validID(proposalID) {
		return sessions, nil
	}
	var rows []guidanceRow
	q := "SELECT " + guidanceColumns + " FROM guidance_sessions WHERE proposal_id = $1 ORDER BY created_at ASC, id"
	if err := repo.db.SelectContext(ctx, &rows, q, proposalID); err != nil {
		return nil, errors.Wrap(err, "querying guidance sessions")
	}
	for _, r := range rows {
		sessions = append(sessions, r.toSession())
	}
	return sessions, nil
}

func (repo *thesisRepository) UpdateGuidanceSession(ctx context.Context, g thesis.GuidanceSession) (thesis.GuidanceSession, error) {
	if !validID(g.ID) {
		return thesis.GuidanceSession{}, thesis.ErrNotFound
	}
	err := execOne(ctx, repo.db, thesis.ErrNotFound, `UPDATE guidance_sessions SET
		held_on = ?, topic = ?, notes = ?, attended = ?, status = ?, feedback = ?, updated_at = ?
		WHERE id = ?`,
		g.HeldOn, g.Topic, g.Notes, g.Attended, g.Status, g.Feedback, g.UpdatedAt, g.ID,
	)
	if err != nil {
		return thesis.GuidanceSession{}, errors.Wrap(err, "updating guidance session")
	}
	return g, nil
}

// Seminar requests

func (repo *thesisRepository) CreateSeminarRequest(ctx context.Context, s thesis.SeminarRequest) (thesis.SeminarRequest, error) {
	s.ID = uuid.NewString()
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO seminar_requests (`+seminarColumns+`)
		VALUES (:id, :proposal_id, :status, :approved_by_primary, :approved_by_secondary, :scheduled_at, :room, :note,
			:created_at, :updated_at)`, newSeminarRow(s))
	if err != nil {
		return thesis.SeminarRequest{}, errors.Wrap(err, "inserting seminar request")
	}
	return s, nil
}

func (repo *thesisRepository) GetSeminarRequest(ctx context.Context, id string) (thesis.SeminarRequest, error) {
	if !validID(id) {
		return thesis.SeminarRequest{}, thesis.ErrNotFound
	}
	var row seminarRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+seminarColumns+" FROM seminar_requests WHERE id = $1", id); err != nil {
		return thesis.SeminarRequest{}, trapNoRowsErr(err, thesis.ErrNotFound)
	}
	return row.toRequest(), nil
}

func (repo *thesisRepository) LatestSeminarRequest(ctx context.Context, proposalID string) (thesis.SeminarRequest, error) {
	if !validID(proposalID) {
		return thesis.SeminarRequest{}, thesis.ErrNotFound
	}
	var row seminarRow
	q := "SELECT " + seminarColumns + " FROM seminar_requests WHERE proposal_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1"
	if err := repo.db.GetContext(ctx, &row, q, proposalID); err != nil {
		return thesis.SeminarRequest{}, trapNoRowsErr(err, thesis.ErrNotFound)
	}
	return row.toRequest(), nil
}

func (repo *thesisRepository) UpdateSeminarRequest(ctx context.Context, s thesis.SeminarRequest) (thesis.SeminarRequest, error) {
	if !validID(s.ID) {
		return thesis.SeminarRequest{}, thesis.ErrNotFound
	}
	res, err := repo.db.NamedExecContext(ctx, `UPDATE seminar_requests SET
		status = :status, approved_by_primary = :approved_by_primary, approved_by_secondary = :approved_by_secondary,
		scheduled_at = :scheduled_at, room = :room, note = :note, updated_at = :updated_at
		WHERE id = :id`, newSeminarRow(s))
	n, err := rowsAffected(res, err)
	if err != nil {
		return thesis.SeminarRequest{}, errors.Wrap(err, "updating seminar request")
	}
	if n == 0 {
		return thesis.SeminarRequest{}, thesis.ErrNotFound
	}
	return s, nil
}

// Seminar documents

func (repo *thesisRepository) SaveDocument(ctx context.Context, d thesis.SeminarDocument) (thesis.SeminarDocument, error) {
	row := newDocumentRow(d)
	row.ID = uuid.NewString()

	q, args, err := repo.db.BindNamed(`INSERT INTO seminar_documents (`+documentColumns+`)
		VALUES (:id, :proposal_id, :kind, :file_path, :status, :note, :verified_by, :verified_at, :uploaded_at, :updated_at)
		ON CONFLICT (proposal_id, kind) DO UPDATE SET
			file_path = EXCLUDED.file_path, status = EXCLUDED.status, note = EXCLUDED.note,
			verified_by = EXCLUDED.verified_by, verified_at = EXCLUDED.verified_at,
			uploaded_at = EXCLUDED.uploaded_at, updated_at = EXCLUDED.updated_at
		RETURNING id`, row)
	if err != nil {
		return thesis.SeminarDocument{}, errors.Wrap(err, "binding seminar document")
	}
	if err = repo.db.GetContext(ctx, &d.ID, q, args...); err != nil {
		return thesis.SeminarDocument{}, errors.Wrap(err, "saving seminar document")
	}
	return d, nil
}

func (repo *thesisRepository) GetDocument(ctx context.Context, id string) (thesis.SeminarDocument, error) {
	if !validID(id) {
		return thesis.SeminarDocument{}, thesis.ErrNotFound
	}
	var row documentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+documentColumns+" FROM seminar_documents WHERE id = $1", id); err != nil {
		return thesis.SeminarDocument{}, trapNoRowsErr(err, thesis.ErrNotFound)
	}
	return row.toDocument(), nil
}

func (repo *thesisRepository) QueryDocuments(ctx context.Context, filter thesis.DocumentFilter) ([]thesis.SeminarDocument, error) {
	docs := make([]thesis.SeminarDocument, 0)
	var where whereClause
	if filter.ProposalID != "" {
		if !validID(filter.ProposalID) {
			return docs, nil
		}
		where.add("proposal_id = ?", filter.ProposalID)
	}
	if filter.Statuses != nil {
		where.add("status = ANY(?)", pq.Array(filter.Statuses))
	}

	var rows []documentRow
	q := "SELECT " + documentColumns + " FROM seminar_documents" + where.String() + " ORDER BY uploaded_at ASC, id"
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying seminar documents")
	}
	for _, r := range rows {
		docs = append(docs, r.toDocument())
	}
	return docs, nil
}

func (repo *thesisRepository) UpdateDocument(ctx context.Context, d thesis.SeminarDocument) (thesis.SeminarDocument, error) {
	if !validID(d.ID) {
		return thesis.SeminarDocument{}, thesis.ErrNotFound
	}
	res, err := repo.db.NamedExecContext(ctx, `UPDATE seminar_documents SET
		file_path = :file_path, status = :status, note = :note, verified_by = :verified_by, verified_at = :verified_at,
		updated_at = :updated_at
		WHERE id = :id`, newDocumentRow(d))
	n, err := rowsAffected(res, err)
	if err != nil {
		return thesis.SeminarDocument{}, errors.Wrap(err, "updating seminar document")
	}
	if n == 0 {
		return thesis.SeminarDocument{}, thesis.ErrNotFound
	}
	return d, nil
}

// Defense requests

func (repo *thesisRepository) CreateDefenseRequest(ctx context.Context, d thesis.DefenseRequest) (thesis.DefenseRequest, error) {
	d.ID = uuid.NewString()
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO defense_requests (`+defenseColumns+`)
		VALUES (:id, :proposal_id, :status, :scheduled_at, :room, :created_at, :updated_at)`, newDefenseRow(d))
	if err != nil {
		if isUniqueViolation(err) {
			return thesis.DefenseRequest{}, thesis.ErrInvalidTransition
		}
		return thesis.DefenseRequest{}, errors.Wrap(err, "inserting defense request")
	}
	return d, nil
}

func (repo *thesisRepository) GetDefenseRequest(ctx context.Context, proposalID string) (thesis.DefenseRequest, error) {
	if !validID(proposalID) {
		return thesis.DefenseRequest{}, thesis.ErrNotFound
	}
	var row defenseRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+defenseColumns+" FROM defense_requests WHERE proposal_id = $1", proposalID); err != nil {
		return thesis.DefenseRequest{}, trapNoRowsErr(err, thesis.ErrNotFound)
	}
	return row.toRequest(), nil
}

func (repo *thesisRepository) UpdateDefenseRequest(ctx context.Context, d thesis.DefenseRequest) (thesis.DefenseRequest, error) {
	if !validID(d.ProposalID) {
		return thesis.DefenseRequest{}, thesis.ErrNotFound
	}
	res, err := repo.db.NamedExecContext(ctx, `UPDATE defense_requests SET
		status = :status, scheduled_at = :scheduled_at, room = :room, updated_at = :updated_at
		WHERE proposal_id = :proposal_id`, newDefenseRow(d))
	n, err := rowsAffected(res, err)
	if err != nil {
		return thesis.DefenseRequest{}, errors.Wrap(err, "updating defense request")
	}
	if n == 0 {
		return thesis.DefenseRequest{}, thesis.ErrNotFound
	}
	return d, nil
}

// Progress facts

// QueryProgressFacts loads every matching proposal with its latest seminar request & document counts,
// then tallies their guidance sessions with progress.CountSessions.
func (repo *thesisRepository) QueryProgressFacts(ctx context.Context, filter thesis.ProposalFilter) ([]thesis.ProgressFacts, error) {
	where := proposalWhere(filter)
	q := `SELECT ` + proposalColumns + `,
		s.id AS seminar_id, s.status AS seminar_status,
		s.approved_by_primary, s.approved_by_secondary,
		s.scheduled_at AS seminar_scheduled_at, s.room AS seminar_room, s.note AS seminar_note,
		s.created_at AS seminar_created_at, s.updated_at AS seminar_updated_at,
		EXISTS (SELECT 1 FROM defense_requests d WHERE d.proposal_id = p.id) AS has_defense,
		(SELECT COUNT(*) FROM seminar_documents sd WHERE sd.proposal_id = p.id) AS uploaded_docs,
		(SELECT COUNT(*) FROM seminar_documents sd WHERE sd.proposal_id = p.id AND sd.status = ?) AS verified_docs
		FROM proposals p
		LEFT JOIN LATERAL (
			SELECT * FROM seminar_requests sr WHERE sr.proposal_id = p.id ORDER BY sr.created_at DESC, sr.id DESC LIMIT 1
		) s ON true` + where.String() + ` ORDER BY p.created_at DESC, p.id`

	args := make([]interface{}, 0, len(where.args)+1)
	args = append(args, thesis.DocumentVerified)
	args = append(args, where.args...)

	var rows []factsRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying progress facts")
	}
	if len(rows) == 0 {
		return []thesis.ProgressFacts{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	sessions, err := repo.sessionsOf(ctx, ids)
	if err != nil {
		return nil, err
	}

	facts := make([]thesis.ProgressFacts, 0, len(rows))
	for _, r := range rows {
		f := r.toFacts()
		f.Tally = progress.CountSessions(sessions[r.ID], f.Proposal.Supervisors())
		facts = append(facts, f)
	}
	return facts, nil
}

// sessionsOf returns the guidance sessions of the proposals, keyed by proposal id.
func (repo *thesisRepository) sessionsOf(ctx context.Context, proposalIDs []string) (map[string][]progress.Session, error) {
	var rows []sessionRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT proposal_id, supervisor_id, attended, status
		FROM guidance_sessions WHERE proposal_id = ANY($1::uuid[])`, pq.Array(proposalIDs))
	if err != nil {
		return nil, errors.Wrap(err, "querying guidance sessions")
	}
	sessions := make(map[string][]progress.Session, len(proposalIDs))
	for _, r := range rows {
		sessions[r.ProposalID] = append(sessions[r.ProposalID], r.toSession())
	}
	return sessions, nil
}
