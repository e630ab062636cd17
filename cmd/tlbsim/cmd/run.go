package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sarchlab/tlbsim/datarecording"
	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/pagewalk"
	"github.com/sarchlab/tlbsim/mem/vm/tlb"
	"github.com/sarchlab/tlbsim/mem/vm/tlb/translationagent"
	"github.com/sarchlab/tlbsim/sim"
	"github.com/sarchlab/tlbsim/tracing"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation and print the TLB statistics as YAML.",
	Long: "`run` builds the TLB hierarchy, lets every core issue random " +
		"translations until all of them are answered, and prints the " +
		"statistics. L1 and L2 TLBs can be configured with the form " +
		"pageSize:sets:ways:latency:policy:mshrLines:mshrTargets:missQueue:ports.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := runOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		return runSimulation(opts, cmd.OutOrStdout())
	},
}

func init() {
	runCmd.Flags().String("config", "", "YAML file with the simulation config.")
	runCmd.Flags().String("env-file", ".env", "File with environment defaults.")
	runCmd.Flags().String("l1", "", "L1 TLB config in the colon form.")
	runCmd.Flags().String("l2", "", "L2 TLB config in the colon form.")
	runCmd.Flags().Int("cores", 0, "Number of cores.")
	runCmd.Flags().Int("requests", 0, "Number of requests per core.")
	runCmd.Flags().String("trace-db", "",
		"Record the statistics and the request traces into <path>.sqlite3.")
	runCmd.Flags().Bool("trace-log", false,
		"Print the trace of every request to stderr.")
	runCmd.Flags().String("output", "", "Write the report to a file.")
	runCmd.Flags().Bool("verbose", false, "Print every TLB event to stderr.")
	runCmd.Flags().Bool("parallel-id", false,
		"Use globally unique request IDs instead of sequential ones.")

	rootCmd.AddCommand(runCmd)
}

type runOptions struct {
	config     SimConfig
	traceDB    string
	traceLog   bool
	output     string
	verbose    bool
	parallelID bool
}

func runOptionsFromFlags(cmd *cobra.Command) (runOptions, error) {
	flags := cmd.Flags()

	var src configSources

	src.configFile, _ = flags.GetString("config")
	src.dotEnvPath, _ = flags.GetString("env-file")
	src.l1String, _ = flags.GetString("l1")
	src.l2String, _ = flags.GetString("l2")
	src.numCores, _ = flags.GetInt("cores")
	src.numReqs, _ = flags.GetInt("requests")

	config, err := loadSimConfig(src)
	if err != nil {
		return runOptions{}, err
	}

	opts := runOptions{config: config}
	opts.traceDB, _ = flags.GetString("trace-db")
	opts.traceLog, _ = flags.GetBool("trace-log")
	opts.output, _ = flags.GetString("output")
	opts.verbose, _ = flags.GetBool("verbose")
	opts.parallelID, _ = flags.GetBool("parallel-id")

	return opts, nil
}

// Report is the outcome of a simulation run.
type Report struct {
	Cycles            uint64      `yaml:"cycles"`
	Total             tlb.Stats   `yaml:"total"`
	L1                tlb.Stats   `yaml:"l1"`
	L2                tlb.Stats   `yaml:"l2"`
	PerCore           []tlb.Stats `yaml:"per_core"`
	PageWalks         uint64      `yaml:"page_walks"`
	Retries           uint64      `yaml:"retries"`
	WrongTranslations uint64      `yaml:"wrong_translations"`
	AvgL1Cycles       float64     `yaml:"avg_l1_cycles"`
}

type simulation struct {
	engine    *sim.CycleEngine
	hierarchy *tlb.Hierarchy
	walker    *pagewalk.Walker
	agents    []*translationagent.Agent
	latency   *tracing.AverageTimeTracer
}

func buildSimulation(c SimConfig, errLog *log.Logger) *simulation {
	engine := sim.NewCycleEngine(1 * sim.GHz).WithMaxCycles(c.MaxCycles)

	log2PageSize, err := vm.Log2(c.L1.PageSize)
	if err != nil {
		log.Panic(err)
	}

	walker := pagewalk.MakeBuilder().
		WithLog2PageSize(log2PageSize).
		WithLatency(c.WalkLatency).
		WithAutoPageAllocation(true).
		Build("PageWalker")

	h := tlb.MakeBuilder().
		WithNumCores(c.NumCores).
		WithL1Config(c.L1).
		WithL2Config(c.L2).
		WithPageWalker(walker).
		Build("TLBHierarchy")

	s := &simulation{
		engine:    engine,
		hierarchy: h,
		walker:    walker,
		latency: tracing.NewAverageTimeTracer(engine, func(t tracing.Task) bool {
			return t.Kind == "req_in"
		}),
	}

	for i := 0; i < c.NumCores; i++ {
		agent := translationagent.MakeBuilder().
			WithCoreID(uint64(i)).
			WithTLB(h.L1(i)).
			WithPageTable(walker.PageTable()).
			WithLogger(errLog).
			WithSeed(c.Seed).
			WithNumRequests(c.NumRequests).
			WithMaxInflight(c.MaxInflight).
			WithAddressSpace(0x100000000, c.L1.PageSize, c.NumPages).
			Build(sim.MakeIndexedName("Agent", i))

		s.agents = append(s.agents, agent)
		engine.RegisterTicker(agent)
		tracing.CollectTrace(h.L1(i), s.latency)
	}

	engine.RegisterTicker(h)

	return s
}

func (s *simulation) tracedUnits() []tracing.NamedHookable {
	units := []tracing.NamedHookable{s.hierarchy.L2(), s.walker}
	for i := 0; i < s.hierarchy.NumCores(); i++ {
		units = append(units, s.hierarchy.L1(i))
	}

	return units
}

func (s *simulation) done() bool {
	for _, a := range s.agents {
		if !a.Done() {
			return false
		}
	}

	return s.hierarchy.IsIdle()
}

func (s *simulation) report() Report {
	h := s.hierarchy

	r := Report{
		Cycles:      s.engine.CurrentCycle(),
		Total:       h.Stats(),
		L1:          h.L1Stats(),
		L2:          h.L2().Stats(),
		PageWalks:   s.walker.NumWalks(),
		AvgL1Cycles: s.latency.AverageCycles(),
	}

	for i := 0; i < h.NumCores(); i++ {
		r.PerCore = append(r.PerCore, h.L1(i).Stats())
	}

	for _, a := range s.agents {
		r.Retries += a.NumRetries()
		r.WrongTranslations += a.NumWrongTranslations()
	}

	return r
}

func runSimulation(opts runOptions, out io.Writer) error {
	if opts.parallelID {
		sim.UseParallelIDGenerator()
	}

	errLog := log.New(os.Stderr, "", 0)
	s := buildSimulation(opts.config, errLog)

	if opts.verbose {
		hook := tlb.NewLogHook(errLog)
		hook.Positions = []*sim.HookPos{
			tlb.HookPosAccess, tlb.HookPosFill, tlb.HookPosRespond,
		}

		s.hierarchy.L2().AcceptHook(hook)

		for i := 0; i < s.hierarchy.NumCores(); i++ {
			s.hierarchy.L1(i).AcceptHook(hook)
		}
	}

	if opts.traceLog {
		tracer := tracing.NewLogTracer(errLog, s.engine)
		for _, u := range s.tracedUnits() {
			tracing.CollectTrace(u, tracer)
		}
	}

	var recorder datarecording.DataRecorder
	if opts.traceDB != "" {
		recorder = datarecording.New(opts.traceDB)
		defer recorder.Close()

		tracer := tracing.NewDBTracer(s.engine, recorder)
		for _, u := range s.tracedUnits() {
			tracing.CollectTrace(u, tracer)
		}
	}

	if err := s.engine.Run(s.done); err != nil {
		return err
	}

	r := s.report()

	if recorder != nil {
		recordStats(recorder, r)
	}

	if err := writeReport(r, opts.output, out); err != nil {
		return err
	}

	if r.WrongTranslations > 0 {
		return fmt.Errorf("%d translations do not match the page table",
			r.WrongTranslations)
	}

	return nil
}

func writeReport(r Report, path string, out io.Writer) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	if path == "" {
		_, err = out.Write(data)
		return err
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	return nil
}

type statsEntry struct {
	Unit             string
	Accesses         uint64
	Misses           uint64
	PendingHits      uint64
	ReservationFails uint64
}

func recordStats(recorder datarecording.DataRecorder, r Report) {
	recorder.CreateTable("tlb_stats", statsEntry{})

	insert := func(unit string, s tlb.Stats) {
		recorder.InsertData("tlb_stats", statsEntry{
			Unit:             unit,
			Accesses:         s.Accesses,
			Misses:           s.Misses,
			PendingHits:      s.PendingHits,
			ReservationFails: s.ReservationFails,
		})
	}

	for i, s := range r.PerCore {
		insert(sim.MakeIndexedName("TLBHierarchy.L1TLB", i), s)
	}

	insert("TLBHierarchy.L2TLB", r.L2)

	recorder.Flush()
}
