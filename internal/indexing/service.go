// Package indexing prepares raw profile records into a searchable Dataset.
package indexing

import (
	"fmt"
	"sort"
	"time"

	"github.com/risseraka/matchmakr/index"
	"github.com/risseraka/matchmakr/internal/errors"
	"github.com/risseraka/matchmakr/internal/fulltext"
	"github.com/risseraka/matchmakr/internal/graph"
	"github.com/risseraka/matchmakr/internal/logging"
	"github.com/risseraka/matchmakr/internal/normalize"
	"github.com/risseraka/matchmakr/internal/skills"
	"github.com/risseraka/matchmakr/model"
)

// Preparation stages, in execution order.
const (
	StageProfiles     = "profiles"
	StageSearch       = "search"
	StageMaps         = "maps"
	StageEndorsements = "endorsements"
	StageRelations    = "relations"
	StageSkills       = "skills_matrix"
)

// Stages lists the preparation stages in execution order.
var Stages = []string{StageProfiles, StageSearch, StageMaps, StageEndorsements, StageRelations, StageSkills}

// StageObserver is notified after each preparation stage.
type StageObserver func(dataset, stage string, d time.Duration)

// Options configures a Service.
type Options struct {
	// Now is the clock used for open-ended positions. Defaults to time.Now.
	Now            func() time.Time
	SearchStrategy string
	// SearchExclude lists the profile leaves left out of free-text search.
	SearchExclude []string
	Logger        *logging.Logger
	OnStage       StageObserver
}

// Service builds datasets. It holds no dataset state and is safe for concurrent use.
type Service struct {
	now      func() time.Time
	strategy string
	exclude  []string
	logger   *logging.Logger
	onStage  StageObserver
}

// NewService creates a new indexing Service.
func NewService(opts Options) (*Service, error) {
	switch opts.SearchStrategy {
	case "", fulltext.StrategyPlain, fulltext.StrategyCapture:
	default:
		return nil, fmt.Errorf("unknown search strategy '%s'", opts.SearchStrategy)
	}

	s := &Service{
		now:      opts.Now,
		strategy: opts.SearchStrategy,
		exclude:  opts.SearchExclude,
		logger:   opts.Logger,
		onStage:  opts.OnStage,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.exclude == nil {
		s.exclude = fulltext.DefaultExclude
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	return s, nil
}

// Prepare copies raw and builds every index, map and derived structure of a dataset.
// Raw is never modified. Profile ids must be unique.
func (s *Service) Prepare(name string, raw []model.Profile) (*Dataset, error) {
	now := s.now()
	ds := &Dataset{Name: name, LoadedAt: now}

	steps := []step{
		{StageProfiles, func() error {
			profiles, err := prepareProfiles(raw, now)
			if err != nil {
				return err
			}
			ds.Profiles = profiles
			ds.IDs = index.Build(profiles, model.FieldID, true)
			return nil
		}},
		{StageSearch, func() error {
			searcher, err := fulltext.New(s.strategy, ds.Profiles, s.exclude)
			ds.Search = searcher
			return err
		}},
		{StageMaps, func() error {
			ds.Maps = make(map[model.Field]*index.FieldMap, len(model.MapFields))
			for _, f := range model.MapFields {
				ds.Maps[f] = index.BuildFieldMap(ds.Profiles, f)
			}
			return nil
		}},
		{StageEndorsements, func() error {
			ds.Endorsements = graph.BuildEndorsements(ds.Profiles)
			ds.Endorsements.Annotate(ds.Profiles)
			return nil
		}},
		{StageRelations, func() error {
			ds.Relations = graph.BuildRelations(ds.Endorsements, ds.Profiles)
			return nil
		}},
		{StageSkills, func() error {
			skillsMap, ok := ds.Maps[model.FieldSkills]
			if !ok {
				return fmt.Errorf("field map %s missing", model.FieldSkills)
			}
			ds.Skills = skills.BuildMatrix(skillsMap)
			return nil
		}},
	}
	if err := s.runSteps(ds, steps); err != nil {
		return nil, err
	}

	s.logger.Info("dataset prepared",
		"dataset", name,
		"profiles", len(ds.Profiles),
		"relations", ds.Relations.Len(),
		"skills", ds.Maps[model.FieldSkills].Len(),
	)
	return ds, nil
}

// step is one named stage of Prepare.
type step struct {
	label string
	run   func() error
}

// runSteps runs steps in order and records their timings on ds.
// It stops at the first failing step; later steps never run.
func (s *Service) runSteps(ds *Dataset, steps []step) error {
	log := s.logger.With("dataset", ds.Name)
	for _, st := range steps {
		start := time.Now()
		if err := st.run(); err != nil {
			log.Warn("stage failed", "stage", st.label, "error", err)
			return fmt.Errorf("preparing dataset '%s' (%s): %w", ds.Name, st.label, err)
		}
		d := time.Since(start)
		ds.Stages = append(ds.Stages, StageTiming{Stage: st.label, Duration: d})
		log.Debug("stage done", "stage", st.label, "duration", d)
		if s.onStage != nil {
			s.onStage(ds.Name, st.label, d)
		}
	}
	return nil
}

// prepareProfiles deep-copies raw, sorts profiles by normalized name, sorts
// skills and positions, and derives tenures and seniority.
func prepareProfiles(raw []model.Profile, now time.Time) ([]*model.Profile, error) {
	seen := make(map[int64]struct{}, len(raw))
	profiles := make([]*model.Profile, len(raw))
	keys := make(map[*model.Profile]string, len(raw))

	for i := range raw {
		if _, dup := seen[raw[i].ID]; dup {
			return nil, errors.NewValidationError("id", fmt.Sprintf("duplicate profile id %d", raw[i].ID))
		}
		seen[raw[i].ID] = struct{}{}

		p := cloneProfile(raw[i])
		preparePositions(p, now)
		sort.SliceStable(p.Skills, func(a, b int) bool {
			return p.Skills[a].EndorsementCount > p.Skills[b].EndorsementCount
		})
		profiles[i] = p
		keys[p] = normalize.Normalize(p.Name)
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		a, b := keys[profiles[i]], keys[profiles[j]]
		if a != b {
			return a < b
		}
		return profiles[i].ID < profiles[j].ID
	})
	return profiles, nil
}

func preparePositions(p *model.Profile, now time.Time) {
	nowMillis := now.UnixMilli()
	end := func(pos model.Position) int64 {
		if pos.EndDate == nil {
			return nowMillis
		}
		return *pos.EndDate
	}

	sort.SliceStable(p.Positions, func(i, j int) bool {
		a, b := p.Positions[i], p.Positions[j]
		if a.StartDate != b.StartDate {
			return a.StartDate < b.StartDate
		}
		return end(a) < end(b)
	})

	var earliest int64
	for i := range p.Positions {
		pos := &p.Positions[i]
		if pos.StartDate == 0 {
			pos.Seniority = 0
			continue
		}
		pos.Seniority = model.ToYears(end(*pos) - pos.StartDate)
		if earliest == 0 || pos.StartDate < earliest {
			earliest = pos.StartDate
		}
	}

	p.HasSeniority = earliest != 0
	p.Seniority = 0
	if p.HasSeniority {
		p.Seniority = model.ToYears(nowMillis - earliest)
	}
}

func cloneProfile(src model.Profile) *model.Profile {
	p := src
	p.Skills = make([]model.Skill, len(src.Skills))
	for i, s := range src.Skills {
		s.Endorsers = append([]int64(nil), s.Endorsers...)
		p.Skills[i] = s
	}
	p.Positions = make([]model.Position, len(src.Positions))
	for i, pos := range src.Positions {
		if pos.EndDate != nil {
			end := *pos.EndDate
			pos.EndDate = &end
		}
		p.Positions[i] = pos
	}
	return &p
}
