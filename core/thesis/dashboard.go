package thesis

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/progress"
	"github.com/trezcool/skripsi/core/user"
)

// DashboardFilter selects the proposals of a dashboard.
// Student & supervisor views set StudentID / SupervisorID; chair & staff views see everything.
type DashboardFilter struct {
	StudentID    string
	SupervisorID string
	Statuses     []string
	Steps        []int
	Search       string
}

func (df *DashboardFilter) Clean() {
	df.Search = core.CleanString(df.Search)
}

func (svc *service) facts(ctx context.Context, proposalID string) (ProgressFacts, error) {
	facts, err := svc.repo.QueryProgressFacts(ctx, ProposalFilter{IDs: []string{proposalID}})
	if err != nil {
		return ProgressFacts{}, errors.Wrap(err, "querying progress facts")
	}
	if len(facts) == 0 {
		return ProgressFacts{}, ErrNotFound
	}
	return facts[0], nil
}

func (svc *service) Progress(ctx context.Context, proposalID string) (ProgressRow, error) {
	facts, err := svc.facts(ctx, proposalID)
	if err != nil {
		return ProgressRow{}, err
	}
	rows, err := svc.rows(ctx, facts)
	if err != nil {
		return ProgressRow{}, err
	}
	return rows[0], nil
}

func (svc *service) Detail(ctx context.Context, proposalID string) (ProposalDetail, error) {
	row, err := svc.Progress(ctx, proposalID)
	if err != nil {
		return ProposalDetail{}, err
	}
	detail := ProposalDetail{ProgressRow: row, Timeline: progress.Timeline()}

	if detail.GuidanceSessions, err = svc.repo.QueryGuidanceSessions(ctx, proposalID); err != nil {
		return ProposalDetail{}, errors.Wrap(err, "querying guidance sessions")
	}
	if detail.Documents, err = svc.repo.QueryDocuments(ctx, DocumentFilter{ProposalID: proposalID}); err != nil {
		return ProposalDetail{}, errors.Wrap(err, "querying documents")
	}
	if req, err := svc.repo.LatestSeminarRequest(ctx, proposalID); err == nil {
		detail.Seminar = &req
	} else if errors.Cause(err) != ErrNotFound {
		return ProposalDetail{}, err
	}
	if def, err := svc.repo.GetDefenseRequest(ctx, proposalID); err == nil {
		detail.Defense = &def
	} else if errors.Cause(err) != ErrNotFound {
		return ProposalDetail{}, err
	}
	return detail, nil
}

// Dashboard resolves the stage of every matching proposal; every view goes through the same path.
func (svc *service) Dashboard(ctx context.Context, filter DashboardFilter) ([]ProgressRow, error) {
	filter.Clean()
	facts, err := svc.repo.QueryProgressFacts(ctx, ProposalFilter{
		StudentID:    filter.StudentID,
		SupervisorID: filter.SupervisorID,
		Statuses:     filter.Statuses,
		Search:       filter.Search,
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying progress facts")
	}
	rows, err := svc.rows(ctx, facts...)
	if err != nil {
		return nil, err
	}
	if len(filter.Steps) == 0 {
		return rows, nil
	}

	filtered := make([]ProgressRow, 0, len(rows))
	for _, row := range rows {
		for _, step := range filter.Steps {
			if row.Stage.Step == step {
				filtered = append(filtered, row)
				break
			}
		}
	}
	return filtered, nil
}

func (svc *service) rows(ctx context.Context, facts ...ProgressFacts) ([]ProgressRow, error) {
	if len(facts) == 0 {
		return []ProgressRow{}, nil
	}

	ids := make([]string, 0, len(facts)*3)
	for _, f := range facts {
		ids = append(ids, f.Proposal.StudentID, f.Proposal.PrimarySupervisorID, f.Proposal.SecondarySupervisorID)
	}
	users, err := svc.users.Query(ctx, &user.QueryFilter{IDs: ids}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	people := make(map[string]Person, len(users))
	for _, usr := range users {
		people[usr.ID] = Person{ID: usr.ID, Name: usr.Name, IdentityNumber: usr.IdentityNumber}
	}
	person := func(id string) Person {
		if p, ok := people[id]; ok {
			return p
		}
		return Person{ID: id}
	}

	rows := make([]ProgressRow, 0, len(facts))
	for _, f := range facts {
		snap := f.Snapshot()
		if err := snap.Validate(); err != nil {
			svc.logger.Warn(fmt.Sprintf("thesis.rows: proposal %s: %v", f.Proposal.ID, err))
		}
		stage := progress.Resolve(snap)
		svc.observer.ObserveStage(stage)
		rows = append(rows, ProgressRow{
			Proposal:            f.Proposal,
			Student:             person(f.Proposal.StudentID),
			PrimarySupervisor:   person(f.Proposal.PrimarySupervisorID),
			SecondarySupervisor: person(f.Proposal.SecondarySupervisorID),
			Guidance:            f.Tally,
			Facts:               snap,
			Stage:               stage,
			Percent:             stage.Percent(),
		})
	}
	return rows, nil
}
