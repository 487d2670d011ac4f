package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/freesideatlanta/member-portal/internal/dto"
	"github.com/freesideatlanta/member-portal/internal/election"
	"github.com/freesideatlanta/member-portal/internal/models"
	"github.com/freesideatlanta/member-portal/internal/repository"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

type electionStore interface {
	CreateElection(ctx context.Context, e *models.Election) error
	FindElection(ctx context.Context, id string) (*models.Election, error)
	ListElectionsEndingAfter(ctx context.Context, cutoff time.Time) ([]*models.Election, error)
	RunInTransaction(ctx context.Context, fn repository.TxFunc) error
}

type personDirectory interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Person, error)
	List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int, error)
}

// ElectionConfig tunes the results board.
type ElectionConfig struct {
	EndedLookback time.Duration
}

// ElectionService runs elections: creation, nominations, votes and tallies.
//
// Nominate and Vote execute their checks and writes in one store transaction
// that is retried on concurrent modification. Neither logs nor audits who
// acted or whom they chose.
type ElectionService struct {
	store     electionStore
	persons   personDirectory
	audit     auditWriter
	cache     *TallyCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ElectionConfig
	now       func() time.Time
	shuffle   election.Shuffler
}

// NewElectionService creates an instance of ElectionService.
func NewElectionService(store electionStore, persons personDirectory, audit auditWriter, cache *TallyCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ElectionConfig) *ElectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.EndedLookback <= 0 {
		cfg.EndedLookback = 30 * 24 * time.Hour
	}
	return &ElectionService{
		store:     store,
		persons:   persons,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		shuffle:   election.Shuffle,
	}
}

// Create opens a new election after checking the schedule order.
func (s *ElectionService) Create(ctx context.Context, req dto.CreateElectionRequest, actorID string, meta models.RequestMeta) (*models.Election, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid election payload")
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be OFFICER or BOARD")
	}
	schedule := req.Schedule()
	if err := election.ValidateSchedule(schedule); err != nil {
		return nil, err
	}

	e := &models.Election{
		Kind:        req.Kind,
		Position:    req.Position,
		Description: req.Description,
		Schedule:    schedule,
		Nominees:    []string{},
		Nominators:  []string{},
		Votes:       []string{},
		Voters:      []string{},
	}
	if err := s.store.CreateElection(ctx, e); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create election")
	}

	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionElectionCreate, "elections", e.ID, nil,
		map[string]interface{}{"kind": e.Kind, "position": e.Position, "schedule": e.Schedule}, meta)

	s.logger.Info("election created", zap.String("election_id", e.ID), zap.String("kind", string(e.Kind)), zap.Time("vote_end", e.VoteEnd))
	return e, nil
}

// Get returns an election by id.
func (s *ElectionService) Get(ctx context.Context, id string) (*models.Election, error) {
	e, err := s.store.FindElection(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "election not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load election")
	}
	return e, nil
}

// Nominate records that actorID nominated nomineeID.
func (s *ElectionService) Nominate(ctx context.Context, electionID, nomineeID, actorID string) error {
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.ElectionTx) error {
		e, err := loadBallotElection(ctx, tx, electionID)
		if err != nil {
			return err
		}
		actor, err := lookupPerson(ctx, tx, actorID)
		if err != nil {
			return err
		}
		nominee, err := lookupPerson(ctx, tx, nomineeID)
		if err != nil {
			return err
		}

		n := election.Nomination{NomineeID: nomineeID, Nominee: nominee, ActorID: actorID, Actor: actor}
		if err := election.CheckNomination(e, n, s.now()); err != nil {
			return err
		}
		election.ApplyNomination(e, n, s.shuffle)
		return tx.SaveRolls(ctx, e)
	})
	return s.finishBallot(ActionNominate, electionID, err)
}

// Vote records that actorID voted for candidateID.
func (s *ElectionService) Vote(ctx context.Context, electionID, candidateID, actorID string) error {
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.ElectionTx) error {
		e, err := loadBallotElection(ctx, tx, electionID)
		if err != nil {
			return err
		}
		actor, err := lookupPerson(ctx, tx, actorID)
		if err != nil {
			return err
		}

		b := election.Ballot{CandidateID: candidateID, ActorID: actorID, Actor: actor}
		if err := election.CheckVote(e, b, s.now()); err != nil {
			return err
		}
		election.ApplyVote(e, b, s.shuffle)
		return tx.SaveRolls(ctx, e)
	})
	return s.finishBallot(ActionVote, electionID, err)
}

func (s *ElectionService) finishBallot(action, electionID string, err error) error {
	s.metrics.RecordBallot(action, err)
	if err == nil {
		s.logger.Info("ballot recorded", zap.String("action", action), zap.String("election_id", electionID))
		return nil
	}

	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		s.logger.Error("ballot failed", zap.String("action", action), zap.String("election_id", electionID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record "+action)
	}
	if errors.Is(err, appErrors.ErrTransactionConflict) {
		s.logger.Warn("ballot gave up after concurrent writes", zap.String("action", action), zap.String("election_id", electionID))
	} else {
		s.logger.Info("ballot rejected", zap.String("action", action), zap.String("election_id", electionID), zap.String("code", appErr.Code))
	}
	return err
}

func loadBallotElection(ctx context.Context, tx repository.ElectionTx, id string) (*models.Election, error) {
	e, err := tx.FindElection(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrInvalidElection, "election does not exist")
	}
	return e, err
}

// lookupPerson resolves id inside the transaction. Unknown ids resolve to nil
// so the rules can report them as ineligible or unauthorised.
func lookupPerson(ctx context.Context, tx repository.ElectionTx, id string) (*models.Person, error) {
	if id == "" {
		return nil, nil
	}
	p, err := tx.FindPerson(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// Tally counts the votes of an election whose voting has closed, with
// candidate names filled in. Closed results never change, so they are cached.
func (s *ElectionService) Tally(ctx context.Context, electionID string) (*models.Tally, error) {
	tally, _, err := s.LookupTally(ctx, electionID)
	return tally, err
}

// LookupTally is Tally that also reports whether the result came from cache.
func (s *ElectionService) LookupTally(ctx context.Context, electionID string) (*models.Tally, bool, error) {
	if cached, hit := s.cache.Lookup(ctx, electionID); hit {
		return cached, true, nil
	}

	e, err := s.store.FindElection(ctx, electionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrInvalidElection, "election does not exist")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load election")
	}
	tally, err := s.tallyOf(ctx, e)
	return tally, false, err
}

func (s *ElectionService) tallyOf(ctx context.Context, e *models.Election) (*models.Tally, error) {
	tally, err := election.Count(e, s.now())
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(tally.Results))
	for _, r := range tally.Results {
		ids = append(ids, r.CandidateID)
	}
	people, err := s.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tally.Results {
		if p, ok := people[tally.Results[i].CandidateID]; ok {
			tally.Results[i].Username = p.Username
			tally.Results[i].FullName = p.FullName
		}
	}

	_ = s.cache.Store(ctx, tally)
	return tally, nil
}

// ListActiveElections partitions recent elections into nominating, voting
// and ended at now. Ended elections older than the lookback are omitted.
func (s *ElectionService) ListActiveElections(ctx context.Context, now time.Time) (election.Board, error) {
	elections, err := s.store.ListElectionsEndingAfter(ctx, now.Add(-s.cfg.EndedLookback))
	if err != nil {
		return election.Board{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list elections")
	}
	return election.Partition(elections, now), nil
}

// Board returns the current elections as seen by viewerID.
func (s *ElectionService) Board(ctx context.Context, viewerID string) (*dto.ElectionBoard, error) {
	now := s.now()
	board, err := s.ListActiveElections(ctx, now)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, group := range [][]*models.Election{board.Nominating, board.Voting} {
		for _, e := range group {
			ids = append(ids, e.Nominees...)
		}
	}
	people, err := s.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := &dto.ElectionBoard{
		Nominating: make([]dto.ElectionView, 0, len(board.Nominating)),
		Voting:     make([]dto.ElectionView, 0, len(board.Voting)),
		Ended:      make([]dto.ElectionView, 0, len(board.Ended)),
		AsOf:       now,
	}
	var directory []models.Person
	if len(board.Nominating) > 0 {
		if directory, err = s.activeDirectory(ctx); err != nil {
			return nil, err
		}
	}
	for _, e := range board.Nominating {
		v := s.view(e, viewerID, people, now)
		v.Eligible = eligibleNominees(e, viewerID, directory)
		out.Nominating = append(out.Nominating, v)
	}
	for _, e := range board.Voting {
		out.Voting = append(out.Voting, s.view(e, viewerID, people, now))
	}
	for _, e := range board.Ended {
		v := s.view(e, viewerID, people, now)
		tally, err := s.cachedTally(ctx, e)
		if err != nil {
			return nil, err
		}
		v.Tally = tally
		out.Ended = append(out.Ended, v)
	}
	return out, nil
}

// View returns one election as seen by viewerID, with results once ended.
func (s *ElectionService) View(ctx context.Context, electionID, viewerID string) (*dto.ElectionView, error) {
	e, err := s.Get(ctx, electionID)
	if err != nil {
		return nil, err
	}
	people, err := s.summaries(ctx, e.Nominees)
	if err != nil {
		return nil, err
	}
	now := s.now()
	v := s.view(e, viewerID, people, now)
	if election.PhaseAt(e.Schedule, now) == election.PhaseNominating {
		directory, err := s.activeDirectory(ctx)
		if err != nil {
			return nil, err
		}
		v.Eligible = eligibleNominees(e, viewerID, directory)
	}
	if election.Ended(e.Schedule, now) {
		if v.Tally, err = s.cachedTally(ctx, e); err != nil {
			return nil, err
		}
	}
	return &v, nil
}

func (s *ElectionService) cachedTally(ctx context.Context, e *models.Election) (*models.Tally, error) {
	if cached, hit := s.cache.Lookup(ctx, e.ID); hit {
		return cached, nil
	}
	return s.tallyOf(ctx, e)
}

func (s *ElectionService) view(e *models.Election, viewerID string, people map[string]models.PersonSummary, now time.Time) dto.ElectionView {
	nominees := make([]models.PersonSummary, 0, len(e.Nominees))
	for _, id := range e.Nominees {
		if p, ok := people[id]; ok {
			nominees = append(nominees, p)
		} else {
			nominees = append(nominees, models.PersonSummary{ID: id})
		}
	}
	return dto.ElectionView{
		ID:           e.ID,
		Kind:         e.Kind,
		Position:     e.Position,
		Description:  e.Description,
		Schedule:     e.Schedule,
		Phase:        string(election.PhaseAt(e.Schedule, now)),
		Nominees:     nominees,
		HasNominated: viewerID != "" && e.HasNominator(viewerID),
		HasVoted:     viewerID != "" && e.HasVoter(viewerID),
	}
}

// activeDirectory pages through every active person, ordered by name.
func (s *ElectionService) activeDirectory(ctx context.Context) ([]models.Person, error) {
	active := true
	var out []models.Person
	for page := 1; ; page++ {
		batch, total, err := s.persons.List(ctx, models.PersonFilter{Active: &active, Page: page, PageSize: 100})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load directory")
		}
		out = append(out, batch...)
		if len(batch) == 0 || len(out) >= total {
			return out, nil
		}
	}
}

// eligibleNominees lists who viewerID could still nominate in e.
func eligibleNominees(e *models.Election, viewerID string, directory []models.Person) []models.PersonSummary {
	out := make([]models.PersonSummary, 0, len(directory))
	for i := range directory {
		p := &directory[i]
		if p.ID == viewerID || e.HasNominee(p.ID) {
			continue
		}
		if !election.Eligible(e.Kind, election.CapabilitiesOf(p)) {
			continue
		}
		out = append(out, p.Summary())
	}
	return out
}

func (s *ElectionService) summaries(ctx context.Context, ids []string) (map[string]models.PersonSummary, error) {
	out := make(map[string]models.PersonSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	people, err := s.persons.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidates")
	}
	for i := range people {
		out[people[i].ID] = people[i].Summary()
	}
	return out, nil
}
