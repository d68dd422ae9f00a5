package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/perf-analysis/internal/dirtree"
	"github.com/perf-analysis/internal/hostadapter"
	"github.com/perf-analysis/internal/posterior"
	"github.com/perf-analysis/internal/repository"
	"github.com/perf-analysis/internal/storage"
	"github.com/perf-analysis/pkg/config"
	"github.com/perf-analysis/pkg/electionfile"
	"github.com/perf-analysis/pkg/model"
	"github.com/perf-analysis/pkg/parallel"
	"github.com/perf-analysis/pkg/utils"
)

// DefaultTaskProcessor implements TaskProcessor using the posterior batch
// driver.
type DefaultTaskProcessor struct {
	config         *config.Config
	storage        storage.Storage
	rawDataStorage storage.Storage // Optional separate storage for raw ballot input
	repos          *repository.Repositories
	logger         utils.Logger
}

// ProcessorConfig holds processor configuration.
type ProcessorConfig struct {
	Config         *config.Config
	Storage        storage.Storage
	RawDataStorage storage.Storage
	Repos          *repository.Repositories
	Logger         utils.Logger
}

// NewDefaultTaskProcessor creates a new DefaultTaskProcessor.
func NewDefaultTaskProcessor(cfg *ProcessorConfig) *DefaultTaskProcessor {
	if cfg.Logger == nil {
		cfg.Logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	rawDataStorage := cfg.RawDataStorage
	if rawDataStorage == nil {
		rawDataStorage = cfg.Storage
	}

	return &DefaultTaskProcessor{
		config:         cfg.Config,
		storage:        cfg.Storage,
		rawDataStorage: rawDataStorage,
		repos:          cfg.Repos,
		logger:         cfg.Logger,
	}
}

// Process runs the posterior batch driver for a single audit run.
func (p *DefaultTaskProcessor) Process(ctx context.Context, task *Task, rules []model.RecommendationRule) error {
	p.logger.Info("Starting posterior simulation for run %s (n_candidates=%d, n_elections=%d, n_batches=%d)",
		task.UUID, task.RequestParams.NCandidates, task.RequestParams.NElections, task.RequestParams.NBatches)

	runDir := p.config.GetRunDir(task.UUID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			p.logger.Warn("Failed to clean up run directory %s: %v", runDir, err)
		}
	}()

	localFile := filepath.Join(runDir, filepath.Base(task.ResultFile))
	if err := p.downloadInputFile(ctx, task, localFile); err != nil {
		return fmt.Errorf("failed to download observed-ballot file: %w", err)
	}

	candidates, tree, err := p.buildTree(task, localFile)
	if err != nil {
		return fmt.Errorf("failed to build posterior tree: %w", err)
	}

	cfg := posterior.BatchConfig{
		NElections: task.RequestParams.NElections,
		NBallots:   task.RequestParams.NBallots,
		NBatches:   task.RequestParams.NBatches,
		Replace:    task.RequestParams.Replace,
		NWinners:   task.RequestParams.NWinners,
		Pool:       p.poolConfig(),
	}

	counts, err := posterior.Run(ctx, tree, cfg)
	if err != nil {
		return fmt.Errorf("posterior batch driver failed: %w", err)
	}

	result := p.buildResult(task, candidates, counts)

	recommendations := p.generateRecommendations(task, candidates, counts, rules)
	result.Batches["aggregate"] = model.BatchResult{
		WinCounts:       fmt.Sprintf("%d/%d", counts.NElections, cfg.NElections),
		Recommendations: recommendations,
		TotalDraws:      int64(cfg.NElections * cfg.NBallots),
	}

	if err := p.saveResult(ctx, runDir, result); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	if len(recommendations) > 0 {
		if err := p.repos.Recommendation.SaveRecommendations(ctx, recommendations); err != nil {
			p.logger.Warn("Failed to save recommendations: %v", err)
			// Don't fail the run for recommendation-persistence errors.
		}
	}

	if task.ParentRunUUID != nil {
		if err := p.updateParentRun(ctx, task, recommendations); err != nil {
			p.logger.Warn("Failed to update parent run: %v", err)
		}
	}

	if err := p.repos.Run.UpdateRunStatus(ctx, task.ID, model.RunStatusCompleted); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	p.logger.Info("Run %s posterior simulation completed successfully", task.UUID)
	return nil
}

// downloadInputFile downloads the run's observed-ballot file from storage.
func (p *DefaultTaskProcessor) downloadInputFile(ctx context.Context, task *Task, localPath string) error {
	return p.rawDataStorage.DownloadFile(ctx, task.ResultFile, localPath)
}

// poolConfig derives the posterior driver's worker-pool configuration
// from the pool defaults, with the worker count replaced by the configured
// max worker count when one is set.
func (p *DefaultTaskProcessor) poolConfig() parallel.PoolConfig {
	pc := parallel.DefaultPoolConfig()
	if p.config != nil && p.config.Simulation.MaxWorker > 0 {
		pc = pc.WithWorkers(p.config.Simulation.MaxWorker)
	}
	return pc
}

// buildTree reads the run's observed-ballot file and constructs a
// Dirichlet tree seeded with those observations.
func (p *DefaultTaskProcessor) buildTree(task *Task, localFile string) (*hostadapter.CandidateSet, *dirtree.Tree, error) {
	ef, err := electionfile.Load(localFile)
	if err != nil {
		return nil, nil, err
	}

	candidates, err := ef.CandidateSet()
	if err != nil {
		return nil, nil, err
	}

	params := task.RequestParams
	a0 := params.A0
	if a0 <= 0 {
		a0 = p.config.Election.A0
	}
	treeParams, err := dirtree.NewParams(candidates.N(), params.MinDepth, params.MaxDepth, a0, params.Reducible)
	if err != nil {
		return nil, nil, err
	}

	seed := params.Seed
	if seed == "" {
		seed = task.UUID
	}
	tree := dirtree.New(treeParams, seed)

	if err := ef.Apply(tree, candidates); err != nil {
		return nil, nil, err
	}

	return candidates, tree, nil
}

// buildResult assembles the AuditResult skeleton from the driver's win
// counts, named back through the candidate set.
func (p *DefaultTaskProcessor) buildResult(task *Task, candidates *hostadapter.CandidateSet, counts posterior.WinCounts) *model.AuditResult {
	candidateSet := make(map[string]model.CandidateEntry, candidates.N())
	for i, name := range candidates.Names() {
		candidateSet[name] = model.CandidateEntry{Index: i, ShortName: name}
	}

	return &model.AuditResult{
		RunUUID:      task.UUID,
		CandidateSet: candidateSet,
		Batches:      make(map[string]model.BatchResult),
		Version:      p.config.Election.Version,
		TotalDraws:   int64(task.RequestParams.TotalDraws()),
		TotalBatches: int64(counts.NElections),
	}
}

// generateRecommendations applies the dispatcher's recommendation rules
// to the driver's per-candidate win probabilities.
func (p *DefaultTaskProcessor) generateRecommendations(task *Task, candidates *hostadapter.CandidateSet, counts posterior.WinCounts, rules []model.RecommendationRule) []model.Recommendation {
	recommendations := make([]model.Recommendation, 0, len(candidates.Names()))

	for i, name := range candidates.Names() {
		prob := counts.WinProbability(i)
		for _, rule := range rules {
			if rule.Target != "win_probability" {
				continue
			}
			if !ruleMatches(rule, prob) {
				continue
			}
			recommendations = append(recommendations, model.NewRecommendationBuilder().
				WithRunUUID(task.UUID).
				WithCandidate(name).
				WithText(rule.RecommendationContent).
				WithWinProbability(prob).
				Build())
		}
	}

	return recommendations
}

// ruleMatches evaluates one threshold rule against an observed value.
func ruleMatches(rule model.RecommendationRule, value float64) bool {
	switch rule.Operation {
	case ">":
		return value > rule.Threshold
	case ">=":
		return value >= rule.Threshold
	case "<":
		return value < rule.Threshold
	case "<=":
		return value <= rule.Threshold
	case "==":
		return value == rule.Threshold
	default:
		return false
	}
}

// saveResult writes the result to the database and uploads the JSON
// report artifact to object storage.
func (p *DefaultTaskProcessor) saveResult(ctx context.Context, runDir string, result *model.AuditResult) error {
	reportPath := filepath.Join(runDir, "report.json")
	if err := writeJSONFile(reportPath, result); err == nil {
		key := fmt.Sprintf("%s/report.json", result.RunUUID)
		if err := p.storage.UploadFile(ctx, key, reportPath); err != nil {
			p.logger.Error("Failed to upload report for run %s: %v", result.RunUUID, err)
		}
	} else {
		p.logger.Error("Failed to write report for run %s: %v", result.RunUUID, err)
	}

	return p.repos.Result.SaveResult(ctx, result)
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// updateParentRun folds this run's recommendations into its parent run's
// complexity-class group and checks whether the parent is now complete.
func (p *DefaultTaskProcessor) updateParentRun(ctx context.Context, task *Task, recommendations []model.Recommendation) error {
	if task.ParentRunUUID == nil {
		return nil
	}
	parentRunUUID := *task.ParentRunUUID

	class := complexityClass(task.RequestParams.NCandidates)
	group := model.RecommendationGroup{Recommendations: recommendations}

	if err := p.repos.ParentRun.UpdateParentRunRecommendations(ctx, parentRunUUID, class, group); err != nil {
		return err
	}

	return p.repos.ParentRun.CheckAndCompleteIfReady(ctx, parentRunUUID)
}

// complexityClass classifies a run by candidate count: beyond a handful
// of candidates, n! terminal ballot categories make the tree markedly
// more expensive to simulate.
func complexityClass(nCandidates int) model.ComplexityClass {
	if nCandidates > 7 {
		return model.ComplexityHeavy
	}
	return model.ComplexityLight
}
