package main

/*
tandem-parse streams SAM alignments and turns them into MAPQ-model
training features, template models and, optionally, a fresh batch of
simulated ("tandem") reads drawn against a reference FASTA.

For each input the aligned records are split into four lanes (unpaired,
bad-end, concordant, discordant); each lane gets a flat binary feature
file plus a metadata line, and optionally a CSV template model and a
reservoir-sampled input model for simulation.
*/

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/tandembio/bio/encoding/fasta"
	"github.com/tandembio/bio/sim"
	"github.com/tandembio/bio/tandem"
)

var (
	outPrefix      = flag.String("out", "", "Feature/metadata output path prefix; empty disables feature output")
	modelPrefix    = flag.String("model-out", "", "Template-model and simulated-read output path prefix; empty disables both")
	refPath        = flag.String("ref", "", "Reference FASTA path, required with -simulate")
	simulate       = flag.Bool("simulate", false, "Sample input models during the pass and write simulated reads afterwards")
	wiggle         = flag.Int("wiggle", tandem.DefaultOpts.Wiggle, "Maximum distance from the true point of origin for an alignment to be called correct")
	maxFragLen     = flag.Int("max-allowed-fraglen", tandem.DefaultOpts.MaxFragLen, "Fragment lengths above this value are truncated to it")
	inputModelSize = flag.Int("input-model-size", tandem.DefaultOpts.InputModelSize, "Maximum number of templates sampled per input model; <= 0 keeps all")
	fractionEven   = flag.Float64("fraction-even", tandem.DefaultOpts.FractionEven, "Fraction of templates drawn uniformly rather than score-weighted")
	lowScoreBias   = flag.Float64("low-score-bias", tandem.DefaultOpts.LowScoreBias, "Bias toward low-scoring templates when drawing non-uniformly")
	simFactor      = flag.Float64("sim-factor", sim.DefaultOpts.Factor, "Simulated-read count multiplier applied to the growth function")
	simFunction    = flag.String("sim-function", "sqrt", "Growth of simulated-read count in reference size; 'sqrt', 'linear' or 'const'")
	simUnpMin      = flag.Int("sim-unp-min", sim.DefaultOpts.UnpMin, "Minimum simulated unpaired reads")
	simConcMin     = flag.Int("sim-conc-min", sim.DefaultOpts.ConcMin, "Minimum simulated concordant pairs")
	simDiscMin     = flag.Int("sim-disc-min", sim.DefaultOpts.DiscMin, "Minimum simulated discordant pairs")
	simBadEndMin   = flag.Int("sim-bad-end-min", sim.DefaultOpts.BadEndMin, "Minimum simulated bad-end pairs")
	seed           = flag.Int64("seed", 1, "Pseudo-random seed for reservoir sampling and read simulation")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] sampath [sampath ...]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	samPaths := flag.Args()
	if len(samPaths) == 0 {
		log.Fatalf("No SAM inputs; please check flag syntax: '%s'", strings.Join(os.Args[1:], " "))
	}
	if *simulate && *refPath == "" {
		log.Fatalf("-simulate requires -ref")
	}
	if *simulate && *modelPrefix == "" {
		log.Fatalf("-simulate requires -model-out")
	}
	growthFn, err := sim.ParseGrowthFunc(*simFunction)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *lowScoreBias != 1.0 || *fractionEven != 1.0 {
		log.Printf("warning: -fraction-even and -low-score-bias are accepted but not yet applied; draws are uniform")
	}

	ctx := vcontext.Background()
	rnd := rand.New(rand.NewSource(*seed))

	var (
		lanes    tandem.Lanes
		allBufs  []*bufio.Writer
		allFiles []file.File
	)
	create := func(path string) io.Writer {
		f, err := file.Create(ctx, path)
		if err != nil {
			log.Fatalf("Couldn't create output file %s: %v", path, err)
		}
		w := bufio.NewWriterSize(f.Writer(ctx), 1<<20)
		allBufs = append(allBufs, w)
		allFiles = append(allFiles, f)
		return w
	}

	laneSetup := []struct {
		lane   *tandem.Lane
		name   string
		paired bool
	}{
		{&lanes.Unpaired, "u", false},
		{&lanes.BadEnd, "b", false},
		{&lanes.Concordant, "c", true},
		{&lanes.Discordant, "d", true},
	}
	for _, ls := range laneSetup {
		ls.lane.Name = ls.name
		ls.lane.Paired = ls.paired
		if *outPrefix != "" {
			ls.lane.Features = create(fmt.Sprintf("%s_rec_%s.npy", *outPrefix, ls.name))
			ls.lane.Meta = create(fmt.Sprintf("%s_rec_%s.npy.meta", *outPrefix, ls.name))
		}
		if *modelPrefix != "" {
			ls.lane.Model = create(fmt.Sprintf("%s_mod_%s.csv", *modelPrefix, ls.name))
		}
		if *simulate {
			if ls.paired {
				ls.lane.PairTemplates = tandem.NewPairedReservoir(*inputModelSize, rnd)
			} else {
				ls.lane.Templates = tandem.NewUnpairedReservoir(*inputModelSize, rnd)
			}
		}
	}

	opts := tandem.Opts{
		Wiggle:         *wiggle,
		MaxFragLen:     *maxFragLen,
		InputModelSize: *inputModelSize,
		FractionEven:   *fractionEven,
		LowScoreBias:   *lowScoreBias,
	}
	pass := tandem.NewPass(opts, &lanes)
	for _, path := range samPaths {
		log.Printf("Parsing %s", path)
		in, err := file.Open(ctx, path)
		if err != nil {
			log.Fatalf("Couldn't open input file %s: %v", path, err)
		}
		var inr io.Reader = in.Reader(ctx)
		if u := compress.NewReaderPath(inr, in.Name()); u != nil {
			inr = u
		}
		if err := pass.Run(inr); err != nil {
			log.Fatalf("%s: %v", path, err)
		}
		if err := in.Close(ctx); err != nil {
			log.Fatalf("Couldn't close input file %s: %v", path, err)
		}
	}
	if err := pass.Finish(); err != nil {
		log.Fatalf("%v", err)
	}
	stats := pass.Stats()
	log.Printf("Pass summary:")
	stats.Log()

	if *simulate {
		if err := runSimulation(ctx, &lanes, growthFn, rnd, create); err != nil {
			log.Fatalf("%v", err)
		}
	}

	for _, w := range allBufs {
		if err := w.Flush(); err != nil {
			log.Fatalf("Couldn't flush output: %v", err)
		}
	}
	for _, f := range allFiles {
		if err := f.Close(ctx); err != nil {
			log.Fatalf("Couldn't close output file %s: %v", f.Name(), err)
		}
	}
	log.Debug.Printf("exiting")
}

// runSimulation builds the per-lane input models from the pass's
// reservoirs, loads the reference and writes one batch of simulated reads
// under the model prefix.
func runSimulation(ctx context.Context, lanes *tandem.Lanes, growthFn sim.GrowthFunc, rnd *rand.Rand, create func(string) io.Writer) error {
	ref, err := loadFasta(ctx, *refPath)
	if err != nil {
		return err
	}
	models := sim.Models{
		Unpaired: sim.NewInputModelUnpaired(
			lanes.Unpaired.Templates.Items(), lanes.Unpaired.Templates.Seen(), *fractionEven, *lowScoreBias),
		BadEnd: sim.NewInputModelUnpaired(
			lanes.BadEnd.Templates.Items(), lanes.BadEnd.Templates.Seen(), *fractionEven, *lowScoreBias),
		Concordant: sim.NewInputModelPaired(
			lanes.Concordant.PairTemplates.Items(), lanes.Concordant.PairTemplates.Seen(), *fractionEven, *lowScoreBias),
		Discordant: sim.NewInputModelPaired(
			lanes.Discordant.PairTemplates.Items(), lanes.Discordant.PairTemplates.Seen(), *fractionEven, *lowScoreBias),
	}
	out := sim.Outputs{
		Unpaired:    create(*modelPrefix + "_reads_u.fastq"),
		BadEnd1:     create(*modelPrefix + "_reads_b_1.fastq"),
		BadEnd2:     create(*modelPrefix + "_reads_b_2.fastq"),
		Concordant1: create(*modelPrefix + "_reads_c_1.fastq"),
		Concordant2: create(*modelPrefix + "_reads_c_2.fastq"),
		Discordant1: create(*modelPrefix + "_reads_d_1.fastq"),
		Discordant2: create(*modelPrefix + "_reads_d_2.fastq"),
	}
	simulator, err := sim.NewSimulator(ref, models, out, rnd)
	if err != nil {
		return err
	}
	opts := sim.Opts{
		Factor:    *simFactor,
		Function:  growthFn,
		UnpMin:    *simUnpMin,
		BadEndMin: *simBadEndMin,
		ConcMin:   *simConcMin,
		DiscMin:   *simDiscMin,
	}
	log.Printf("Simulating reads against %d reference bases", simulator.NumEstimatedBases())
	return simulator.SimulateBatch(opts)
}

func loadFasta(ctx context.Context, path string) (fasta.Fasta, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	var inr io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(inr, in.Name()); u != nil {
		inr = u
	}
	ref, err := fasta.New(bufio.NewReaderSize(inr, 1<<20))
	if err != nil {
		return nil, err
	}
	return ref, in.Close(ctx)
}
