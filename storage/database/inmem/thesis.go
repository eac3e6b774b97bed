package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/progress"
	"github.com/trezcool/skripsi/core/thesis"
)

type thesisRepository struct {
	db *DB
}

func NewThesisRepository(db *DB) thesis.Repository {
	return &thesisRepository{db: db}
}

// Proposals

func (repo *thesisRepository) CreateProposal(_ context.Context, p thesis.Proposal) (thesis.Proposal, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p.ID = uuid.NewString()
	repo.db.proposals[p.ID] = &p
	repo.db.inserted(p.ID)
	return p, nil
}

func (repo *thesisRepository) GetProposal(_ context.Context, id string) (thesis.Proposal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.proposals[id]; ok {
		return *p, nil
	}
	return thesis.Proposal{}, thesis.ErrNotFound
}

func (repo *thesisRepository) QueryProposals(_ context.Context, filter thesis.ProposalFilter) ([]thesis.Proposal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.queryProposals(filter), nil
}

// queryProposals returns the matching proposals, newest first; callers hold the lock.
func (repo *thesisRepository) queryProposals(filter thesis.ProposalFilter) []thesis.Proposal {
	proposals := make([]thesis.Proposal, 0)
	search := strings.ToLower(filter.Search)
	for _, p := range repo.db.proposals {
		if filter.IDs != nil && !core.StringInSlice(p.ID, filter.IDs) {
			continue
		}
		if filter.StudentID != "" && p.StudentID != filter.StudentID {
			continue
		}
		if filter.SupervisorID != "" && !p.IsSupervisedBy(filter.SupervisorID) {
			continue
		}
		if filter.Statuses != nil && !core.StringInSlice(p.Status, filter.Statuses) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
			continue
		}
		proposals = append(proposals, *p)
	}
	sort.Slice(proposals, func(i, j int) bool { return repo.db.before(proposals[j].ID, proposals[i].ID) })
	return proposals
}

func (repo *thesisRepository) UpdateProposal(_ context.Context, p thesis.Proposal) (thesis.Proposal, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.proposals[p.ID]; !ok {
		return thesis.Proposal{}, thesis.ErrNotFound
	}
	repo.db.proposals[p.ID] = &p
	return p, nil
}

// Guidance sessions

func (repo *thesisRepository) CreateGuidanceSession(_ context.Context, g thesis.GuidanceSession) (thesis.GuidanceSession, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	g.ID = uuid.NewString()
	repo.db.guidance[g.ID] = &g
	repo.db.inserted(g.ID)
	return g, nil
}

func (repo *thesisRepository) GetGuidanceSession(_ context.Context, id string) (thesis.GuidanceSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if g, ok := repo.db.guidance[id]; ok {
		return *g, nil
	}
	return thesis.GuidanceSession{}, thesis.ErrNotFound
}

func (repo *thesisRepository) QueryGuidanceSessions(_ context.Context, proposalID string) ([]thesis.GuidanceSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.guidanceOf(proposalID), nil
}

func (repo *thesisRepository) guidanceOf(proposalID string) []thesis.GuidanceSession {
	sessions := make([]thesis.GuidanceSession, 0)
	for _, g := range repo.db.guidance {
		if g.ProposalID == proposalID {
			sessions = append(sessions, *g)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return repo.db.before(sessions[i].ID, sessions[j].ID) })
	return sessions
}

func (repo *thesisRepository) UpdateGuidanceSession(_ context.Context, g thesis.GuidanceSession) (thesis.GuidanceSession, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.guidance[g.ID]; !ok {
		return thesis.GuidanceSession{}, thesis.ErrNotFound
	}
	repo.db.guidance[g.ID] = &g
	return g, nil
}

// Seminar requests

func (repo *thesisRepository) CreateSeminarRequest(_ context.Context, s thesis.SeminarRequest) (thesis.SeminarRequest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.ID = uuid.NewString()
	repo.db.seminars[s.ID] = &s
	repo.db.inserted(s.ID)
	return s, nil
}

func (repo *thesisRepository) GetSeminarRequest(_ context.Context, id string) (thesis.SeminarRequest, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.seminars[id]; ok {
		return *s, nil
	}
	return thesis.SeminarRequest{}, thesis.ErrNotFound
}

func (repo *thesisRepository) LatestSeminarRequest(_ context.Context, proposalID string) (thesis.SeminarRequest, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s := repo.latestSeminar(proposalID); s != nil {
		return *s, nil
	}
	return thesis.SeminarRequest{}, thesis.ErrNotFound
}

func (repo *thesisRepository) latestSeminar(proposalID string) *thesis.SeminarRequest {
	var latest *thesis.SeminarRequest
	for _, s := range repo.db.seminars {
		if s.ProposalID == proposalID && (latest == nil || repo.db.before(latest.ID, s.ID)) {
			latest = s
		}
	}
	if latest == nil {
		return nil
	}
	s := *latest
	return &s
}

func (repo *thesisRepository) UpdateSeminarRequest(_ context.Context, s thesis.SeminarRequest) (thesis.SeminarRequest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.seminars[s.ID]; !ok {
		return thesis.SeminarRequest{}, thesis.ErrNotFound
	}
	repo.db.seminars[s.ID] = &s
	return s, nil
}

// Seminar documents

func (repo *thesisRepository) SaveDocument(_ context.Context, d thesis.SeminarDocument) (thesis.SeminarDocument, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, doc := range repo.db.documents {
		if doc.ProposalID == d.ProposalID && doc.Kind == d.Kind {
			d.ID = id
			repo.db.documents[id] = &d
			return d, nil
		}
	}
	d.ID = uuid.NewString()
	repo.db.documents[d.ID] = &d
	repo.db.inserted(d.ID)
	return d, nil
}

func (repo *thesisRepository) GetDocument(_ context.Context, id string) (thesis.SeminarDocument, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if d, ok := repo.db.documents[id]; ok {
		return *d, nil
	}
	return thesis.SeminarDocument{}, thesis.ErrNotFound
}

func (repo *thesisRepository) QueryDocuments(_ context.Context, filter thesis.DocumentFilter) ([]thesis.SeminarDocument, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	docs := make([]thesis.SeminarDocument, 0)
	for _, d := range repo.db.documents {
		if filter.ProposalID != "" && d.ProposalID != filter.ProposalID {
			continue
		}
		if filter.Statuses != nil && !core.StringInSlice(d.Status, filter.Statuses) {
			continue
		}
		docs = append(docs, *d)
	}
	sort.Slice(docs, func(i, j int) bool { return repo.db.before(docs[i].ID, docs[j].ID) })
	return docs, nil
}

func (repo *thesisRepository) UpdateDocument(_ context.Context, d thesis.SeminarDocument) (thesis.SeminarDocument, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.documents[d.ID]; !ok {
		return thesis.SeminarDocument{}, thesis.ErrNotFound
	}
	repo.db.documents[d.ID] = &d
	return d, nil
}

// Defense requests

func (repo *thesisRepository) CreateDefenseRequest(_ context.Context, d thesis.DefenseRequest) (thesis.DefenseRequest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.defenses[d.ProposalID]; ok {
		return thesis.DefenseRequest{}, thesis.ErrInvalidTransition
	}
	d.ID = uuid.NewString()
	repo.db.defenses[d.ProposalID] = &d
	return d, nil
}

func (repo *thesisRepository) GetDefenseRequest(_ context.Context, proposalID string) (thesis.DefenseRequest, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if d, ok := repo.db.defenses[proposalID]; ok {
		return *d, nil
	}
	return thesis.DefenseRequest{}, thesis.ErrNotFound
}

func (repo *thesisRepository) UpdateDefenseRequest(_ context.Context, d thesis.DefenseRequest) (thesis.DefenseRequest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.defenses[d.ProposalID]; !ok {
		return thesis.DefenseRequest{}, thesis.ErrNotFound
	}
	repo.db.defenses[d.ProposalID] = &d
	return d, nil
}

// Progress facts

func (repo *thesisRepository) QueryProgressFacts(_ context.Context, filter thesis.ProposalFilter) ([]thesis.ProgressFacts, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	proposals := repo.queryProposals(filter)
	facts := make([]thesis.ProgressFacts, 0, len(proposals))
	for _, p := range proposals {
		f := thesis.ProgressFacts{Proposal: p, LatestSeminar: repo.latestSeminar(p.ID)}
		_, f.HasDefense = repo.db.defenses[p.ID]

		for _, d := range repo.db.documents {
			if d.ProposalID != p.ID {
				continue
			}
			f.UploadedDocs++
			if d.Status == thesis.DocumentVerified {
				f.VerifiedDocs++
			}
		}

		sessions := make([]progress.Session, 0)
		for _, g := range repo.guidanceOf(p.ID) {
			sessions = append(sessions, g.Session())
		}
		f.Tally = progress.CountSessions(sessions, p.Supervisors())
		facts = append(facts, f)
	}
	return facts, nil
}
