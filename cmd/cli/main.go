package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/CardioDNA/internal/detector"
	"github.com/himanishpuri/CardioDNA/internal/ecg"
	"github.com/himanishpuri/CardioDNA/internal/ecgio"
	"github.com/himanishpuri/CardioDNA/internal/pipeline"
	"github.com/himanishpuri/CardioDNA/internal/preprocess"
	"github.com/himanishpuri/CardioDNA/internal/refine"
	"github.com/himanishpuri/CardioDNA/internal/rr"
	"github.com/himanishpuri/CardioDNA/internal/storage"
	"github.com/himanishpuri/CardioDNA/internal/stream"
	"github.com/himanishpuri/CardioDNA/internal/synth"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna"
	"github.com/himanishpuri/CardioDNA/pkg/logger"
	"github.com/himanishpuri/CardioDNA/pkg/models"
	"github.com/himanishpuri/CardioDNA/pkg/utils"
)

// Global flags
var (
	dbPath      string
	natsURL     string
	natsSubject string
)

func init() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("CARDIO_DB_PATH", storage.DefaultDBFile), "Path to the SQLite database file")
	flag.StringVar(&natsURL, "nats", getEnvOrDefault("CARDIO_NATS_URL", ""), "NATS server URL for run announcements (empty disables)")
	flag.StringVar(&natsSubject, "subject", getEnvOrDefault("CARDIO_NATS_SUBJECT", stream.DefaultSubject), "NATS subject for run announcements")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// createService builds the service from the global flags plus opts.
// An unreachable NATS server only costs the announcements.
func createService(opts ...cardiodna.Option) (cardiodna.Service, error) {
	log := logger.GetLogger()
	all := []cardiodna.Option{cardiodna.WithDBPath(dbPath)}
	if natsURL != "" {
		pub, err := cardiodna.NewNATSPublisher(natsURL, natsSubject)
		if err != nil {
			log.Warnf("Run announcements disabled: %v", err)
		} else {
			all = append(all, cardiodna.WithPublisher(pub))
		}
	}
	return cardiodna.NewService(append(all, opts...)...)
}

func main() {
	log := logger.GetLogger()
	flag.Usage = printUsage
	flag.Parse()

	printBanner()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]
	log.Debugf("Executing command: %s", command)

	switch command {
	case "detect":
		handleDetect(args)
	case "batch":
		handleBatch(args)
	case "synth":
		handleSynth(args)
	case "runs":
		handleRuns(args)
	case "show":
		handleShow(args)
	case "delete":
		handleDelete(args)
	case "detectors":
		handleDetectors()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
  ____              _ _       ____  _   _    _
 / ___|__ _ _ __ __| (_) ___ |  _ \| \ | |  / \
| |   / _' | '__/ _' | |/ _ \| | | |  \| | / _ \
| |__| (_| | | | (_| | | (_) | |_| | |\  |/ ___ \
 \____\__,_|_|  \__,_|_|\___/|____/|_| \_/_/   \_\

            ECG Beat Detection CLI Tool
`
	fmt.Println(banner)
}

// splitArgs separates the leading positional argument from the flags after it.
func splitArgs(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("❌ %s\n", msg)
	logger.GetLogger().Error(msg)
	os.Exit(1)
}

// analysisFlags are the processing options shared by detect and batch.
type analysisFlags struct {
	detector     string
	detectorOpts string
	lowCut       float64
	highCut      float64
	targetRate   float64
	order        int
	radius       float64
	refractory   float64
	polarity     string
	minRR        float64
	maxRR        float64
	ectopic      float64
	tolerance    float64
	channel      int
}

func addAnalysisFlags(fs *flag.FlagSet) *analysisFlags {
	pre := preprocess.DefaultConfig()
	ref := refine.DefaultConfig()
	lim := rr.DefaultLimits()

	f := &analysisFlags{}
	fs.StringVar(&f.detector, "detector", detector.Default, "Detector name (see 'detectors')")
	fs.StringVar(&f.detectorOpts, "detector-opts", "", "Detector options as JSON")
	fs.Float64Var(&f.lowCut, "low", pre.LowCut, "Band-pass low edge (Hz)")
	fs.Float64Var(&f.highCut, "high", pre.HighCut, "Band-pass high edge (Hz)")
	fs.Float64Var(&f.targetRate, "target-rate", pre.TargetRate, "Resample before detection (Hz, 0 keeps the input rate)")
	fs.IntVar(&f.order, "order", pre.Order, "Filter sections per band edge")
	fs.Float64Var(&f.radius, "radius", ref.SearchRadius, "Peak refinement search radius (s)")
	fs.Float64Var(&f.refractory, "refractory", ref.Refractory, "Minimum spacing between beats (s)")
	fs.StringVar(&f.polarity, "polarity", string(ref.Polarity), "R-peak polarity: positive, negative or absolute")
	fs.Float64Var(&f.minRR, "min-rr", lim.MinSeconds, "Shortest plausible RR interval (s)")
	fs.Float64Var(&f.maxRR, "max-rr", lim.MaxSeconds, "Longest plausible RR interval (s)")
	fs.Float64Var(&f.ectopic, "ectopic", lim.EctopicThreshold, "Relative deviation from the local median that marks an ectopic RR (0 disables)")
	fs.Float64Var(&f.tolerance, "tolerance", pipeline.DefaultTolerance, "Beat matching tolerance (s)")
	fs.IntVar(&f.channel, "channel", 0, "WAV channel holding the lead")
	return f
}

func (f *analysisFlags) options() []cardiodna.Option {
	var opts json.RawMessage
	if f.detectorOpts != "" {
		opts = json.RawMessage(f.detectorOpts)
	}
	return []cardiodna.Option{
		cardiodna.WithDetector(f.detector, opts),
		cardiodna.WithPreprocess(f.lowCut, f.highCut, f.targetRate, f.order),
		cardiodna.WithRefine(f.radius, f.refractory, f.polarity),
		cardiodna.WithRRLimits(f.minRR, f.maxRR, f.ectopic),
		cardiodna.WithTolerance(f.tolerance),
	}
}

func handleDetect(args []string) {
	wavPath, flagArgs := splitArgs(args)

	detectCmd := flag.NewFlagSet("detect", flag.ExitOnError)
	af := addAnalysisFlags(detectCmd)
	annPath := detectCmd.String("ann", "", "Reference annotations to score against (optional)")
	outPath := detectCmd.String("out", "", "Write detected beat indices to this file (optional)")
	asJSON := detectCmd.Bool("json", false, "Print the analysis as JSON")
	detectCmd.Parse(flagArgs)

	if wavPath == "" {
		fmt.Println("Error: WAV file path required")
		fmt.Println("Usage: cardiodna detect <file.wav> [--ann <beats.txt>] [--out <beats.txt>] [options]")
		os.Exit(1)
	}

	svc, err := createService(af.options()...)
	if err != nil {
		fail("Failed to create service: %v", err)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := svc.AnalyzeFile(ctx, wavPath, *annPath, af.channel)
	if err != nil {
		fail("Analysis failed: %v", err)
	}

	if *outPath != "" {
		beats := make(ecg.Beats, len(a.Beats))
		for i, b := range a.Beats {
			beats[i] = b.Sample
		}
		header := fmt.Sprintf("%s detector=%s rate=%g", a.Run.Source, a.Run.Detector, a.Run.SampleRate)
		if err := ecgio.WriteAnnotations(*outPath, beats, header); err != nil {
			fail("Failed to write beats: %v", err)
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(a)
		return
	}

	fmt.Printf("\n✅ Analysed %s\n\n", a.Run.Source)
	printRun(a.Run)
	if len(a.Missed) > 0 {
		fmt.Printf("   Missed:      %s\n", sampleList(a.Missed, 10))
	}
	if len(a.Extra) > 0 {
		fmt.Printf("   Extra:       %s\n", sampleList(a.Extra, 10))
	}
	if *outPath != "" {
		fmt.Printf("\n💾 Beats written to %s\n", *outPath)
	}
}

func handleBatch(args []string) {
	dir, flagArgs := splitArgs(args)

	batchCmd := flag.NewFlagSet("batch", flag.ExitOnError)
	af := addAnalysisFlags(batchCmd)
	annExt := batchCmd.String("ann-ext", ".txt", "Extension of annotation files next to each WAV")
	workers := batchCmd.Int("workers", 0, "Parallel recordings (0 uses all CPUs)")
	batchCmd.Parse(flagArgs)

	if dir == "" {
		fmt.Println("Error: directory required")
		fmt.Println("Usage: cardiodna batch <dir> [--ann-ext .txt] [--workers n] [options]")
		os.Exit(1)
	}

	files, err := utils.ListFiles(dir, ".wav")
	if err != nil {
		fail("%v", err)
	}
	if len(files) == 0 {
		fmt.Printf("\n📭 No WAV files in %s\n", dir)
		return
	}

	items := make([]cardiodna.BatchItem, len(files))
	for i, f := range files {
		items[i] = cardiodna.BatchItem{WAVPath: f, Channel: af.channel}
		if ann := utils.SwapExt(f, *annExt); fileExists(ann) {
			items[i].AnnotationsPath = ann
		}
	}

	svc, err := createService(append(af.options(), cardiodna.WithWorkers(*workers))...)
	if err != nil {
		fail("Failed to create service: %v", err)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("🔍 Analysing %d recording(s) from %s...\n\n", len(items), dir)
	results, sum, err := svc.Batch(ctx, items)
	if err != nil && !errors.Is(err, context.Canceled) {
		fail("Batch failed: %v", err)
	}

	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Printf("❌ %-24s %v\n", r.Source, r.Err)
		case r.Analysis.Run.Score != nil:
			sc := r.Analysis.Run.Score
			fmt.Printf("✅ %-24s %5d beats  Se %.3f  +P %.3f\n", r.Source, r.Analysis.Run.Beats, sc.Sensitivity, sc.Precision)
		default:
			fmt.Printf("✅ %-24s %5d beats\n", r.Source, r.Analysis.Run.Beats)
		}
	}

	fmt.Printf("\n📊 %d recording(s), %d failed, %s beats\n", sum.Recordings, sum.Failed, humanize.Comma(int64(sum.Beats)))
	if sum.Scored > 0 {
		fmt.Printf("   Pooled over %d scored: TP=%s FP=%s FN=%s\n", sum.Scored,
			humanize.Comma(int64(sum.TP)), humanize.Comma(int64(sum.FP)), humanize.Comma(int64(sum.FN)))
		fmt.Printf("   Sensitivity %.4f | Precision %.4f | F1 %.4f\n", sum.Sensitivity, sum.Precision, sum.F1)
	}
	if errors.Is(err, context.Canceled) {
		fmt.Println("\n⚠️  Interrupted before every recording was scheduled")
		os.Exit(1)
	}
}

func handleSynth(args []string) {
	log := logger.GetLogger()
	wavPath, flagArgs := splitArgs(args)

	def := synth.DefaultConfig()
	synthCmd := flag.NewFlagSet("synth", flag.ExitOnError)
	rate := synthCmd.Float64("rate", def.Rate, "Sampling rate (Hz)")
	duration := synthCmd.Float64("duration", def.Duration, "Length (s)")
	hr := synthCmd.Float64("hr", def.HeartRate, "Mean heart rate (bpm)")
	variability := synthCmd.Float64("variability", def.Variability, "Relative RR modulation")
	noise := synthCmd.Float64("noise", def.Noise, "Noise amplitude")
	baseline := synthCmd.Float64("baseline", def.Baseline, "Baseline wander amplitude")
	invert := synthCmd.Bool("invert", false, "Invert the lead")
	bits := synthCmd.Int("bits", 16, "WAV bit depth: 16, 24 or 32")
	annPath := synthCmd.String("ann", "", "Annotation file (default: WAV path with .txt)")
	synthCmd.Parse(flagArgs)

	if wavPath == "" {
		fmt.Println("Error: output WAV path required")
		fmt.Println("Usage: cardiodna synth <out.wav> [--hr 72] [--duration 60] [--rate 250] [options]")
		os.Exit(1)
	}
	if *annPath == "" {
		*annPath = utils.SwapExt(wavPath, ".txt")
	}

	rec, err := synth.Generate(synth.Config{
		Rate:        *rate,
		Duration:    *duration,
		HeartRate:   *hr,
		Variability: *variability,
		Noise:       *noise,
		Baseline:    *baseline,
		Invert:      *invert,
	})
	if err != nil {
		fail("Failed to generate recording: %v", err)
	}
	if err := ecgio.WriteWAV(wavPath, rec.Signal, *bits); err != nil {
		fail("Failed to write WAV: %v", err)
	}
	header := fmt.Sprintf("synthetic hr=%g rate=%g", *hr, *rate)
	if err := ecgio.WriteAnnotations(*annPath, rec.Peaks, header); err != nil {
		fail("Failed to write annotations: %v", err)
	}

	size := "?"
	if fi, err := os.Stat(wavPath); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	fmt.Printf("✅ Wrote %s (%s, %s samples) with %d beats\n", wavPath, size, humanize.Comma(int64(rec.Signal.Len())), len(rec.Peaks))
	fmt.Printf("   Annotations: %s\n", *annPath)
	log.Infof("Synthesised %s: %.0fs at %g Hz, %g bpm", wavPath, *duration, *rate, *hr)
}

func handleRuns(args []string) {
	runsCmd := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := runsCmd.Int("limit", 20, "Number of runs to show (0 for all)")
	runsCmd.Parse(args)

	svc, err := createService()
	if err != nil {
		fail("Failed to create service: %v", err)
	}
	defer svc.Close()

	runs, err := svc.ListRuns(*limit)
	if err != nil {
		fail("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("\n📭 No runs in database")
		return
	}

	fmt.Printf("\n📚 %d run(s):\n\n", len(runs))
	for i, r := range runs {
		fmt.Printf("%d. %s  %s (%s)\n", i+1, r.ID, r.Source, humanize.Time(r.CreatedAt))
		line := fmt.Sprintf("   %s | %s beats | %.1f bpm", r.Detector, humanize.Comma(int64(r.Beats)), r.HRV.MeanHR)
		if r.Score != nil {
			line += fmt.Sprintf(" | Se %.3f +P %.3f", r.Score.Sensitivity, r.Score.Precision)
		}
		fmt.Println(line)
	}
}

func handleShow(args []string) {
	id, flagArgs := splitArgs(args)
	showCmd := flag.NewFlagSet("show", flag.ExitOnError)
	withBeats := showCmd.Bool("beats", false, "List every beat")
	showCmd.Parse(flagArgs)

	if id == "" {
		fmt.Println("Usage: cardiodna show <run_id> [--beats]")
		os.Exit(1)
	}

	svc, err := createService()
	if err != nil {
		fail("Failed to create service: %v", err)
	}
	defer svc.Close()

	run, err := svc.GetRun(id)
	if err != nil {
		fail("Run not found (ID: %s): %v", id, err)
	}
	fmt.Println()
	printRun(*run)

	if !*withBeats {
		return
	}
	beats, err := svc.GetBeats(id)
	if err != nil {
		fail("Failed to load beats: %v", err)
	}
	fmt.Printf("\n%6s %10s %10s %10s  %s\n", "#", "sample", "rr (s)", "used (s)", "flag")
	for _, b := range beats {
		if b.Seq == 0 {
			fmt.Printf("%6d %10d\n", b.Seq, b.Sample)
			continue
		}
		fmt.Printf("%6d %10d %10.3f %10.3f  %s\n", b.Seq, b.Sample, b.RRSeconds, b.RRValue, b.Flag)
	}
}

func handleDelete(args []string) {
	log := logger.GetLogger()
	if len(args) < 1 {
		fmt.Println("Usage: cardiodna delete <run_id>")
		os.Exit(1)
	}
	id := args[0]

	svc, err := createService()
	if err != nil {
		fail("Failed to create service: %v", err)
	}
	defer svc.Close()

	run, err := svc.GetRun(id)
	if err != nil {
		fail("Run not found (ID: %s)", id)
	}
	if err := svc.DeleteRun(id); err != nil {
		fail("Failed to delete run: %v", err)
	}

	fmt.Printf("\n✅ Successfully deleted run:\n")
	fmt.Printf("   ID:     %s\n", run.ID)
	fmt.Printf("   Source: %s\n", run.Source)
	fmt.Printf("   Beats:  %d\n", run.Beats)
	log.Infof("Deleted run %s (%s)", run.ID, run.Source)
}

func handleDetectors() {
	fmt.Println("Available detectors:")
	for _, name := range detector.Names() {
		marker := ""
		if name == detector.Default {
			marker = " (default)"
		}
		fmt.Printf("  - %s%s\n", name, marker)
	}
}

func printRun(r models.Run) {
	if r.ID != "" {
		fmt.Printf("   Run:         %s\n", r.ID)
	}
	fmt.Printf("   Source:      %s\n", r.Source)
	fmt.Printf("   Detector:    %s\n", r.Detector)
	fmt.Printf("   Signal:      %s samples at %g Hz (%.1fs)\n", humanize.Comma(int64(r.Samples)), r.SampleRate, r.DurationSec)
	fmt.Printf("   Beats:       %s (%d RR rejected, %d corrected)\n", humanize.Comma(int64(r.Beats)), r.Rejected, r.Corrected)
	fmt.Printf("   Heart rate:  %.1f bpm | SDNN %.1f ms | RMSSD %.1f ms | pNN50 %.1f%%\n",
		r.HRV.MeanHR, r.HRV.SDNN, r.HRV.RMSSD, r.HRV.PNN50)
	if r.HRV.LF > 0 || r.HRV.HF > 0 {
		fmt.Printf("   Spectrum:    LF %.1f ms² | HF %.1f ms² | LF/HF %.2f\n", r.HRV.LF, r.HRV.HF, r.HRV.LFHF)
	}
	if sc := r.Score; sc != nil {
		fmt.Printf("   Score:       TP=%d FP=%d FN=%d\n", sc.TP, sc.FP, sc.FN)
		fmt.Printf("                Sensitivity %.4f | Precision %.4f | F1 %.4f | offset %.1f ms\n",
			sc.Sensitivity, sc.Precision, sc.F1, sc.MeanOffsetMs)
	}
}

func sampleList(idx []int, limit int) string {
	parts := make([]string, 0, limit+1)
	for i, v := range idx {
		if i == limit {
			parts = append(parts, fmt.Sprintf("... (%d more)", len(idx)-limit))
			break
		}
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, ", ")
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func printUsage() {
	fmt.Println("CardioDNA - ECG Beat Detection CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>        Path to SQLite database (env: CARDIO_DB_PATH, default: cardiodna.sqlite3)")
	fmt.Println("  --nats <url>       Announce runs on NATS (env: CARDIO_NATS_URL)")
	fmt.Println("  --subject <name>   NATS subject (env: CARDIO_NATS_SUBJECT, default: cardio.runs)")
	fmt.Println("\nUsage:")
	fmt.Println("  cardiodna [global-options] detect <file.wav> [--ann <beats.txt>] [--out <beats.txt>] [--json] [options]")
	fmt.Println("  cardiodna [global-options] batch <dir> [--ann-ext .txt] [--workers n] [options]")
	fmt.Println("  cardiodna [global-options] synth <out.wav> [--hr 72] [--duration 60] [--rate 250] [--invert]")
	fmt.Println("  cardiodna [global-options] runs [--limit n]")
	fmt.Println("  cardiodna [global-options] show <run_id> [--beats]")
	fmt.Println("  cardiodna [global-options] delete <run_id>")
	fmt.Println("  cardiodna detectors")
	fmt.Println("\nAnalysis options (detect, batch):")
	fmt.Println("  --detector, --detector-opts, --low, --high, --target-rate, --order,")
	fmt.Println("  --radius, --refractory, --polarity, --min-rr, --max-rr, --ectopic, --tolerance, --channel")
	fmt.Println("\nExamples:")
	fmt.Println("  # Make a test recording and score the default detector on it")
	fmt.Println("  cardiodna synth rec.wav --hr 80")
	fmt.Println("  cardiodna detect rec.wav --ann rec.txt")
	fmt.Println()
	fmt.Println("  # Inverted lead, threshold detector with custom options")
	fmt.Println("  cardiodna detect lead2.wav --polarity negative --detector threshold --detector-opts '{\"fraction\":0.5}'")
	fmt.Println()
	fmt.Println("  # Score a whole directory with 4 workers")
	fmt.Println("  cardiodna --db study.sqlite3 batch ./recordings --workers 4")
}
