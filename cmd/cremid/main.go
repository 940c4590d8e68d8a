package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/MaStatLab/cremid"
)

func main() {
	dataArg := flag.String("d", "", "input data table: trait columns followed by an integer group label column")
	cfgArg := flag.String("c", "", "optional yaml settings file")
	kArg := flag.Int("K", 0, "truncation level (overrides config)")
	nburnArg := flag.Int("nburn", 0, "burn-in sweeps (overrides config)")
	nsaveArg := flag.Int("nsave", 0, "number of saved draws (overrides config)")
	nskipArg := flag.Int("nskip", 0, "thinning interval (overrides config)")
	seedArg := flag.Uint64("seed", 0, "random seed (overrides config)")
	workersArg := flag.Int("W", 0, "number of Go workers for the label sweep")
	runNameArg := flag.String("o", "cremid", "prefix for outfile names")
	verboseArg := flag.Bool("v", false, "log diagnostic events to stderr")
	flag.Parse()

	if *dataArg == "" {
		fmt.Println("an input data table is required (-d)")
		os.Exit(1)
	}
	data, err := cremid.ReadTable(*dataArg)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("READ", data.N, "OBSERVATIONS IN", data.P, "DIMENSIONS ACROSS", data.J, "GROUPS")

	prior := cremid.DefaultPriors(data)
	sched := cremid.DefaultMCMCSettings()
	if *cfgArg != "" {
		cfg, err := cremid.LoadConfig(*cfgArg)
		if err != nil {
			log.Fatal(err)
		}
		cfg.Apply(prior, &sched)
	}
	if *kArg > 0 {
		prior.K = *kArg
	}
	if *nburnArg > 0 {
		sched.NBurn = *nburnArg
	}
	if *nsaveArg > 0 {
		sched.NSave = *nsaveArg
	}
	if *nskipArg > 0 {
		sched.NSkip = *nskipArg
	}
	if *seedArg != 0 {
		sched.Seed = *seedArg
	}
	if *workersArg > 0 {
		sched.Workers = *workersArg
	}

	var logger *slog.Logger
	if *verboseArg {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	sampler, err := cremid.InitSampler(data, prior, sched, nil, logger)
	if err != nil {
		log.Fatal(err)
	}
	start := time.Now()
	chain, err := sampler.Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	elapsed := time.Since(start)
	fmt.Println("COMPLETED", sched.NBurn+sched.NSave*sched.NSkip, "MCMC SWEEPS IN", elapsed)

	if err := writeChain(chain, *runNameArg); err != nil {
		log.Fatal(err)
	}
}

//writeChain writes the label draws and the scalar trace to two files
func writeChain(chain *cremid.Chain, prefix string) error {
	lf, err := os.Create(prefix + ".labels")
	if err != nil {
		return err
	}
	defer lf.Close()
	lw := bufio.NewWriter(lf)
	tf, err := os.Create(prefix + ".trace")
	if err != nil {
		return err
	}
	defer tf.Close()
	tw := bufio.NewWriter(tf)
	fmt.Fprintln(tw, "draw\trho\tvarphi\talpha0\toccupied\tk0")
	for d, st := range chain.States {
		for i, z := range st.Labels {
			if i > 0 {
				fmt.Fprint(lw, "\t")
			}
			fmt.Fprint(lw, strconv.Itoa(z))
		}
		fmt.Fprint(lw, "\n")
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n",
			d,
			strconv.FormatFloat(st.Rho, 'f', -1, 64),
			strconv.FormatFloat(st.Varphi, 'f', -1, 64),
			strconv.FormatFloat(st.Alpha0, 'f', -1, 64),
			len(st.OccupiedSlots()),
			st.Part.K0)
	}
	if err := lw.Flush(); err != nil {
		return err
	}
	return tw.Flush()
}
