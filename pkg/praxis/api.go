// Package praxis is the public client facade: it glues the premade-model
// registry, dataset loading, population-model construction, fitting,
// persistence, and run artifacts into a handful of request/summary calls.
package praxis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"praxis/internal/agent"
	"praxis/internal/attr"
	"praxis/internal/data"
	"praxis/internal/diff"
	"praxis/internal/dist"
	"praxis/internal/fit"
	"praxis/internal/formula"
	"praxis/internal/logging"
	"praxis/internal/model"
	"praxis/internal/population"
	"praxis/internal/premade"
	"praxis/internal/sampler"
	"praxis/internal/session"
	"praxis/internal/stats"
	"praxis/internal/storage"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultExportsDir   = "exports"
	defaultDBPath       = "praxis.db"
)

// Options configures a client. Zero values select the memory store, the
// built-in model catalog, and the default directories.
type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Registry     *premade.Registry
	Logger       *slog.Logger
}

// Client is the facade over fitting, simulation, persistence, and run
// artifacts. Not safe for concurrent use.
type Client struct {
	store    storage.Store
	registry *premade.Registry
	logger   *slog.Logger

	artifactsDir string
	exportsDir   string
	initialized  bool
}

// PriorSpec names a prior distribution by family. Zero scale fields take
// the family defaults (sigma 1, nu 3).
type PriorSpec struct {
	Family string
	Mu     float64
	Sigma  float64
	Nu     float64
}

// FormulaSpec is one regression formula plus its inverse link and optional
// prior overrides.
type FormulaSpec struct {
	Formula string
	Link    string
	Beta    *PriorSpec
	Sigma   *PriorSpec
}

// FitRequest describes one fitting run end to end: the model, the dataset
// and its column roles, the population structure, and the sampler budget.
// Formulas select the regression population model; otherwise parameters are
// fit independently per session under their priors.
type FitRequest struct {
	Model string

	DataPath     string
	Data         *data.Table
	Observations []string
	Actions      []string
	Groups       []string

	Parameters []string
	Priors     map[string]PriorSpec
	Formulas   []FormulaSpec

	Missing string

	Chains   int
	Samples  int
	Warmup   int
	StepSize float64
	Seed     int64
	Workers  int

	Track     []string
	Statistic string
}

// FitSummary reports one completed (or resumed) run.
type FitSummary struct {
	RunID             string
	ArtifactsDir      string
	Sessions          []string
	AcceptRates       []float64
	StepSizes         []float64
	ParameterSummary  data.Table
	TrajectorySummary data.Table
}

// ResumeRequest extends a persisted run with more retained draws. Request
// must describe the same model, dataset, and population as the original
// fit; the sampler budget comes from the stored run record.
type ResumeRequest struct {
	RunID   string
	Latest  bool
	Samples int
	Request FitRequest
}

// SimulateRequest runs one agent forward over an observation sequence.
// Rows takes precedence over DataPath; with DataPath the Observations
// column names select and order the inputs.
type SimulateRequest struct {
	Model        string
	Parameters   map[string]float64
	Rows         [][]float64
	DataPath     string
	Observations []string
	Seed         int64
	Track        []string
}

// SimulateSummary is the realized actions plus the visited state history
// (initial snapshot first).
type SimulateSummary struct {
	ActionNames []string
	Actions     [][]float64
	StateNames  []string
	History     [][]float64
}

// RunsRequest lists persisted runs, newest first.
type RunsRequest struct {
	Limit int
}

// RunItem is one line of the run listing.
type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Model        string
	Sessions     int
	Chains       int
	Samples      int
	Warmup       int
	Seed         int64
}

// SummaryRequest fetches one run's persisted record and summary tables.
type SummaryRequest struct {
	RunID  string
	Latest bool
}

// SummaryResult is the persisted view of one run.
type SummaryResult struct {
	Run               model.RunRecord
	ParameterSummary  data.Table
	TrajectorySummary data.Table
}

// ExportRequest copies one run's artifacts directory for sharing.
type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

// ExportSummary names the exported directory.
type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	registry := opts.Registry
	if registry == nil {
		registry = premade.Builtin()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New("praxis")
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		registry:     registry,
		logger:       logger,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Models lists the registered model names.
func (c *Client) Models() []string {
	return c.registry.List()
}

// Fit assembles and samples one inference problem, persists the run and its
// chain segments, writes run artifacts, and returns the summaries.
func (c *Client) Fit(ctx context.Context, req FitRequest) (FitSummary, error) {
	req = req.withDefaults()
	if err := c.ensureStore(ctx); err != nil {
		return FitSummary{}, err
	}

	problem, err := c.assemble(req)
	if err != nil {
		return FitSummary{}, err
	}

	result, err := fit.Run(ctx, problem, fit.SampleOptions{
		Chains:   req.Chains,
		Samples:  req.Samples,
		Warmup:   req.Warmup,
		StepSize: req.StepSize,
		Seed:     req.Seed,
		Workers:  req.Workers,
	})
	if err != nil {
		return FitSummary{}, err
	}

	run := model.RunRecord{
		VersionedRecord: storage.Stamp(),
		ID:              uuid.NewString(),
		Model:           req.Model,
		CreatedAt:       time.Now().UTC(),
		Settings: model.SamplerSettings{
			Chains:   req.Chains,
			Samples:  req.Samples,
			Warmup:   req.Warmup,
			StepSize: req.StepSize,
			Seed:     req.Seed,
		},
		LatentNames: result.LatentNames,
		Sessions:    sessionIDs(problem.Sessions()),
		Parameters:  problem.Population().ParameterNames(),
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return FitSummary{}, err
	}
	if err := c.saveSegments(ctx, run.ID, 0, result.Chains); err != nil {
		return FitSummary{}, err
	}

	return c.finishRun(ctx, run, result, req)
}

// Resume loads a persisted run, reassembles its chains, and continues
// sampling from each chain's last draw with the stored step size (no new
// warmup). The extension is persisted as the next segment per chain.
func (c *Client) Resume(ctx context.Context, req ResumeRequest) (FitSummary, error) {
	if err := c.ensureStore(ctx); err != nil {
		return FitSummary{}, err
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return FitSummary{}, err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return FitSummary{}, err
	}
	if !ok {
		return FitSummary{}, fmt.Errorf("run not found: %s", runID)
	}

	fitReq := req.Request.withDefaults()
	fitReq.Model = run.Model
	fitReq.Chains = run.Settings.Chains
	fitReq.Seed = run.Settings.Seed
	samples := req.Samples
	if samples <= 0 {
		samples = run.Settings.Samples
	}

	problem, err := c.assemble(fitReq)
	if err != nil {
		return FitSummary{}, err
	}
	if got := problem.Population().Dim(); got != len(run.LatentNames) {
		return FitSummary{}, fmt.Errorf("resume request yields %d latents, run %s has %d", got, runID, len(run.LatentNames))
	}

	prior := make([][][]float64, run.Settings.Chains)
	init := make([][]float64, run.Settings.Chains)
	nextSegment := 0
	warmStep := 0.0
	for chain := 0; chain < run.Settings.Chains; chain++ {
		segments, err := c.store.GetSegments(ctx, runID, chain)
		if err != nil {
			return FitSummary{}, err
		}
		draws, err := storage.AssembleChain(segments)
		if err != nil {
			return FitSummary{}, fmt.Errorf("chain %d: %w", chain, err)
		}
		prior[chain] = draws
		init[chain] = append([]float64(nil), draws[len(draws)-1]...)
		warmStep += segments[len(segments)-1].StepSize
		if len(segments) > nextSegment {
			nextSegment = len(segments)
		}
	}
	warmStep /= float64(run.Settings.Chains)

	target := problem.Target()
	kernel := sampler.NewMALA(c.logger)
	chains, err := kernel.Sample(ctx, target, init, sampler.Config{
		Chains:   run.Settings.Chains,
		Samples:  samples,
		Warmup:   0,
		StepSize: warmStep,
		Seed:     run.Settings.Seed + int64(nextSegment)*7919,
		Workers:  fitReq.Workers,
	})
	if err != nil {
		return FitSummary{}, err
	}
	if err := c.saveSegments(ctx, runID, nextSegment, chains); err != nil {
		return FitSummary{}, err
	}

	merged := sampler.Chains{
		StepSizes:   chains.StepSizes,
		AcceptRates: chains.AcceptRates,
	}
	for chain := range prior {
		merged.Samples = append(merged.Samples, append(prior[chain], chains.Samples[chain]...))
	}

	run.Settings.Samples += samples
	if err := c.store.SaveRun(ctx, run); err != nil {
		return FitSummary{}, err
	}

	result := &fit.Result{
		Problem:     problem,
		Chains:      merged,
		LatentNames: run.LatentNames,
	}
	return c.finishRun(ctx, run, result, fitReq)
}

// Simulate runs one agent over an observation sequence and returns the
// sampled actions plus the tracked state history.
func (c *Client) Simulate(_ context.Context, req SimulateRequest) (SimulateSummary, error) {
	m, err := c.registry.Resolve(req.Model)
	if err != nil {
		return SimulateSummary{}, err
	}

	rows := req.Rows
	if rows == nil {
		if req.DataPath == "" {
			return SimulateSummary{}, errors.New("simulate requires observation rows or a data path")
		}
		table, err := data.LoadCSV(req.DataPath)
		if err != nil {
			return SimulateSummary{}, err
		}
		rows, err = observationRows(table, req.Observations)
		if err != nil {
			return SimulateSummary{}, err
		}
	}

	a, err := agent.New(m, req.Seed, req.Track...)
	if err != nil {
		return SimulateSummary{}, err
	}
	if len(req.Parameters) > 0 {
		if err := a.SetParameters(floatParameters(req.Parameters)); err != nil {
			return SimulateSummary{}, err
		}
		if err := a.Reset(); err != nil {
			return SimulateSummary{}, err
		}
	}

	actions, err := a.Simulate(rows)
	if err != nil {
		return SimulateSummary{}, err
	}

	summary := SimulateSummary{Actions: make([][]float64, len(actions))}
	for _, spec := range m.Schema.Actions {
		summary.ActionNames = append(summary.ActionNames, spec.Name)
	}
	for t, row := range actions {
		out := make([]float64, 0, len(row))
		for _, v := range row {
			out = append(out, v.Floats()...)
		}
		summary.Actions[t] = out
	}
	summary.StateNames, summary.History = a.History()
	return summary, nil
}

// Runs lists persisted runs from the artifacts index, newest first.
func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Model:        e.Model,
			Sessions:     e.Sessions,
			Chains:       e.Chains,
			Samples:      e.Samples,
			Warmup:       e.Warmup,
			Seed:         e.Seed,
		})
	}
	return out, nil
}

// Summary loads one run's persisted record and summary tables.
func (c *Client) Summary(_ context.Context, req SummaryRequest) (SummaryResult, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return SummaryResult{}, err
	}

	run, ok, err := stats.ReadRunRecord(c.artifactsDir, runID)
	if err != nil {
		return SummaryResult{}, err
	}
	if !ok {
		return SummaryResult{}, fmt.Errorf("run not found: %s", runID)
	}

	runDir := filepath.Join(c.artifactsDir, runID)
	params, _, err := stats.ReadTableCSV(filepath.Join(runDir, "parameter_summary.csv"))
	if err != nil {
		return SummaryResult{}, err
	}
	trajectories, _, err := stats.ReadTableCSV(filepath.Join(runDir, "trajectory_summary.csv"))
	if err != nil {
		return SummaryResult{}, err
	}
	return SummaryResult{Run: run, ParameterSummary: params, TrajectorySummary: trajectories}, nil
}

// Export copies one run's artifacts into the exports directory.
func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = c.exportsDir
	}

	exported, err := stats.ExportRunArtifacts(c.artifactsDir, runID, outDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exported)}, nil
}

func (req FitRequest) withDefaults() FitRequest {
	if req.Chains <= 0 {
		req.Chains = 2
	}
	if req.Samples <= 0 {
		req.Samples = 1000
	}
	if req.Warmup <= 0 {
		req.Warmup = req.Samples / 2
	}
	if req.Statistic == "" {
		req.Statistic = "mean"
	}
	return req
}

func (c *Client) assemble(req FitRequest) (*fit.Problem, error) {
	m, err := c.registry.Resolve(req.Model)
	if err != nil {
		return nil, err
	}

	var table data.Table
	if req.Data != nil {
		table = *req.Data
	} else {
		if req.DataPath == "" {
			return nil, errors.New("fit requires a dataset")
		}
		table, err = data.LoadCSV(req.DataPath)
		if err != nil {
			return nil, err
		}
	}

	sessions, sessionTable, err := data.BuildSessions(table, data.BatchSpec{
		Observations: req.Observations,
		Actions:      req.Actions,
		Groups:       req.Groups,
	})
	if err != nil {
		return nil, err
	}

	pop, err := buildPopulation(req, sessions, sessionTable)
	if err != nil {
		return nil, err
	}

	missing, err := missingPolicy(req.Missing)
	if err != nil {
		return nil, err
	}

	return fit.Assemble(m, pop, sessions, fit.Options{
		Missing: missing,
		Logger:  c.logger,
		Seed:    req.Seed,
	})
}

func (c *Client) finishRun(ctx context.Context, run model.RunRecord, result *fit.Result, req FitRequest) (FitSummary, error) {
	stat, err := statisticFromName(req.Statistic)
	if err != nil {
		return FitSummary{}, err
	}
	draws, err := result.Extract(ctx, req.Track)
	if err != nil {
		return FitSummary{}, err
	}
	paramSummary := fit.SummarizeParameters(draws, stat)
	trajSummary := fit.SummarizeTrajectories(draws, stat)

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Run: run,
		Health: stats.SamplerHealth{
			AcceptRates: result.Chains.AcceptRates,
			StepSizes:   result.Chains.StepSizes,
		},
		ParameterSummary:  paramSummary,
		TrajectorySummary: trajSummary,
	})
	if err != nil {
		return FitSummary{}, err
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.IndexEntryFor(run)); err != nil {
		return FitSummary{}, err
	}

	return FitSummary{
		RunID:             run.ID,
		ArtifactsDir:      filepath.Clean(runDir),
		Sessions:          run.Sessions,
		AcceptRates:       result.Chains.AcceptRates,
		StepSizes:         result.Chains.StepSizes,
		ParameterSummary:  paramSummary,
		TrajectorySummary: trajSummary,
	}, nil
}

func (c *Client) saveSegments(ctx context.Context, runID string, segment int, chains sampler.Chains) error {
	for chain, samples := range chains.Samples {
		digest, err := storage.SegmentDigest(samples)
		if err != nil {
			return err
		}
		stepSize := 0.0
		if chain < len(chains.StepSizes) {
			stepSize = chains.StepSizes[chain]
		}
		if err := c.store.SaveSegment(ctx, model.SegmentRecord{
			VersionedRecord: storage.Stamp(),
			RunID:           runID,
			Chain:           chain,
			Segment:         segment,
			StepSize:        stepSize,
			Samples:         samples,
			Digest:          digest,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func buildPopulation(req FitRequest, sessions []data.Session, sessionTable data.Table) (population.Model, error) {
	if len(req.Formulas) > 0 {
		return buildRegression(req.Formulas, sessionTable)
	}

	targets := req.Parameters
	if len(targets) == 0 {
		for name := range req.Priors {
			targets = append(targets, name)
		}
		sort.Strings(targets)
	}
	if len(targets) == 0 {
		return nil, errors.New("fit requires parameters, priors, or formulas")
	}

	params := make([]population.Param, 0, len(targets))
	for _, name := range targets {
		prior, err := priorFromSpec(req.Priors[name])
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		params = append(params, population.Param{Name: name, Prior: prior})
	}
	return population.NewIndependent(params, sessionIDs(sessions))
}

func buildRegression(specs []FormulaSpec, sessionTable data.Table) (population.Model, error) {
	params := make([]population.RegressionParam, 0, len(specs))
	for _, spec := range specs {
		f, err := formula.Parse(spec.Formula)
		if err != nil {
			return nil, err
		}
		design, err := formula.Build(f, sessionTable)
		if err != nil {
			return nil, fmt.Errorf("formula %q: %w", spec.Formula, err)
		}
		link, err := population.LinkByName(spec.Link)
		if err != nil {
			return nil, fmt.Errorf("formula %q: %w", spec.Formula, err)
		}
		p := population.RegressionParam{Target: f.Target, Design: design, Link: link}
		if spec.Beta != nil {
			p.BetaPrior, err = priorFromSpec(*spec.Beta)
			if err != nil {
				return nil, fmt.Errorf("formula %q beta prior: %w", spec.Formula, err)
			}
		}
		if spec.Sigma != nil {
			p.SigmaPrior, err = priorFromSpec(*spec.Sigma)
			if err != nil {
				return nil, fmt.Errorf("formula %q sigma prior: %w", spec.Formula, err)
			}
		}
		params = append(params, p)
	}
	return population.NewRegression(params)
}

func priorFromSpec(spec PriorSpec) (dist.Prior, error) {
	sigma := spec.Sigma
	if sigma == 0 {
		sigma = 1
	}
	nu := spec.Nu
	if nu == 0 {
		nu = 3
	}
	switch strings.ToLower(spec.Family) {
	case "", "normal":
		return dist.Normal{Mu: diff.Const(spec.Mu), Sigma: diff.Const(sigma)}, nil
	case "lognormal":
		return dist.LogNormal{Mu: diff.Const(spec.Mu), Sigma: diff.Const(sigma)}, nil
	case "studentt":
		return dist.StudentT{Nu: nu, Mu: diff.Const(spec.Mu), Sigma: diff.Const(sigma)}, nil
	case "halfstudentt":
		return dist.HalfStudentT{Nu: nu, Sigma: diff.Const(sigma)}, nil
	default:
		return nil, fmt.Errorf("unsupported prior family: %s", spec.Family)
	}
}

func missingPolicy(name string) (session.MissingPolicy, error) {
	switch strings.ToLower(name) {
	case "", "skip":
		return session.SkipMissing, nil
	case "infer":
		return session.InferMissing, nil
	default:
		return 0, fmt.Errorf("unsupported missing-action policy: %s", name)
	}
}

func statisticFromName(name string) (fit.Statistic, error) {
	switch strings.ToLower(name) {
	case "", "mean":
		return fit.Mean, nil
	case "median":
		return fit.Median, nil
	default:
		return nil, fmt.Errorf("unsupported statistic: %s", name)
	}
}

func sessionIDs(sessions []data.Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}

func floatParameters(in map[string]float64) map[string]attr.Value {
	out := make(map[string]attr.Value, len(in))
	for name, v := range in {
		out[name] = attr.FloatValue(v)
	}
	return out
}

func parseFloat(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not numeric", raw)
	}
	return v, nil
}

func observationRows(table data.Table, columns []string) ([][]float64, error) {
	if len(columns) == 0 {
		return nil, errors.New("observation column names are required with a data path")
	}
	idx := make([]int, len(columns))
	for i, name := range columns {
		j, ok := table.ColumnIndex(name)
		if !ok {
			return nil, fmt.Errorf("dataset is missing column %s", name)
		}
		idx[i] = j
	}
	rows := make([][]float64, len(table.Rows))
	for r, row := range table.Rows {
		vals := make([]float64, len(idx))
		for i, j := range idx {
			v, err := parseFloat(row[j])
			if err != nil {
				return nil, fmt.Errorf("row %d, column %s: %w", r+1, columns[i], err)
			}
			vals[i] = v
		}
		rows[r] = vals
	}
	return rows, nil
}
