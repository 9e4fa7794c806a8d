package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/davecheney/profile"

	flag "github.com/docker/docker/pkg/mflag"
)

var (
	// model/prediction files
	dataFile    = flag.String([]string{"d", "-data"}, "", "labeled example data (class label in column 0)")
	predictFile = flag.String([]string{"p", "-predictions"}, "", "file to output predictions")
	modelFile   = flag.String([]string{"f", "-final_model"}, "rf.model", "file to output fitted model")
	// model params
	nTree         = flag.Int([]string{"-trees"}, 10, "number of trees")
	treeDepth     = flag.Int([]string{"-depth"}, 8, "max depth a tree may grow to")
	minSplit      = flag.Int([]string{"-min_split"}, 2, "minimum number of samples required to split an internal node")
	minLeaf       = flag.Int([]string{"-min_leaf"}, 1, "minimum number of samples in newly created leaves")
	maxFeatures   = flag.Int([]string{"-max_features"}, -1, "number of features to consider per split, -1 considers all")
	numCandidates = flag.Int([]string{"-candidates"}, 8, "number of random threshold candidates drawn per considered feature")
	// runtime params
	nWorkers   = flag.Int([]string{"-workers"}, 1, "number of simulated distributed workers (shards) to train over")
	runProfile = flag.Bool([]string{"-profile"}, false, "cpu profile")
)

func main() {
	flag.Parse()

	if *runProfile {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	if *dataFile == "" {
		fmt.Fprintf(os.Stderr, "Usage of rf:\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := os.Open(*dataFile)
	if err != nil {
		fatal("error opening data file", err.Error())
	}
	defer f.Close()

	d, err := parseCSV(f)
	if err != nil {
		fatal("error parsing input data", err.Error())
	}

	if *predictFile != "" {
		m, err := loadModel(*modelFile)
		if err != nil {
			fatal("error opening model file", err.Error())
		}

		pred := m.Predict(d.Samples)

		o, err := os.Create(*predictFile)
		if err != nil {
			fatal("error creating", *predictFile, err.Error())
		}
		defer o.Close()

		if err := writePred(o, pred); err != nil {
			fatal("error writing predictions", err.Error())
		}
		return
	}

	opt := modelOptions{
		nTree:         *nTree,
		treeDepth:     *treeDepth,
		minSplit:      *minSplit,
		minLeaf:       *minLeaf,
		maxFeatures:   *maxFeatures,
		numCandidates: *numCandidates,
		nWorkers:      *nWorkers,
	}

	m := new(Model)
	if err := m.Fit(context.Background(), d, opt); err != nil {
		fatal("error fitting model", err.Error())
	}

	o, err := os.Create(*modelFile)
	if err != nil {
		fatal("error saving model", err.Error())
	}
	defer o.Close()

	if err := m.Save(o); err != nil {
		fatal("error saving model", err.Error())
	}

	m.Report(os.Stderr, d.Samples)
}

func loadModel(fName string) (*Model, error) {
	f, err := os.Open(fName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := new(Model)
	err = m.Load(f)
	return m, err
}

func fatal(a ...interface{}) {
	fmt.Fprintln(os.Stderr, a...)
	os.Exit(1)
}

func writePred(w io.Writer, prediction []string) error {
	wtr := bufio.NewWriter(w)

	for _, pred := range prediction {
		if _, err := wtr.WriteString(pred); err != nil {
			return err
		}
		if err := wtr.WriteByte('\n'); err != nil {
			return err
		}
	}

	return wtr.Flush()
}
