// Copyright 2023 JWXFD2023
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// pipeline-demo runs a grouped aggregation over generated data, either
// on the pipelined engine or through the legacy blocking runner, and
// prints the result with execution statistics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/JWXFD2023/doris/pkg/common/mpool"
	"github.com/JWXFD2023/doris/pkg/config"
	"github.com/JWXFD2023/doris/pkg/container/batch"
	"github.com/JWXFD2023/doris/pkg/container/types"
	"github.com/JWXFD2023/doris/pkg/container/vector"
	"github.com/JWXFD2023/doris/pkg/logutil"
	"github.com/JWXFD2023/doris/pkg/sql/colexec/aggexec"
	"github.com/JWXFD2023/doris/pkg/sql/colexec/group"
	"github.com/JWXFD2023/doris/pkg/sql/colexec/valuescan"
	"github.com/JWXFD2023/doris/pkg/vm"
	"github.com/JWXFD2023/doris/pkg/vm/pipeline"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

var (
	configFile = flag.String("config", "", "engine config file (toml)")
	mode       = flag.String("mode", "pipelined", "execution mode: pipelined or legacy")
	rows       = flag.Int("rows", 1<<20, "generated input rows")
	keys       = flag.Int("keys", 1024, "distinct group keys")
)

func main() {
	flag.Parse()

	ep := &config.EngineParameters{}
	if *configFile != "" {
		loaded, err := config.LoadEngineConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		ep = loaded
	}
	ep.SetDefaultValues()
	if err := ep.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "bad config: %v\n", err)
		os.Exit(1)
	}
	logutil.SetupEngineLogger(ep)

	mp := mpool.MustNewWithCap("pipeline-demo", ep.MempoolMaxSize<<20)
	proc := process.New(context.Background(), mp).WithAnalyzeInfos(4)
	proc.SetQueryId(fmt.Sprintf("demo-%d", time.Now().UnixNano()))
	proc.Lim.BatchRows = ep.BatchRows
	proc.SessionInfo.User = "demo"
	proc.SessionInfo.SessionVariables = map[string]string{
		"batch_rows":  fmt.Sprint(ep.BatchRows),
		"worker_cnt":  fmt.Sprint(ep.WorkerCount),
		"push_policy": ep.QueuePushPolicy,
	}

	scan := generate(proc, *rows, *keys, int(ep.BatchRows))
	node := &group.Node{
		GroupIdx:  0,
		GroupAttr: "k",
		Aggs: []aggexec.AggSpec{
			{Op: aggexec.AggSum, ColIdx: 1, Typ: types.New(types.T_int64)},
			{Op: aggexec.AggCount, ColIdx: 1, Typ: types.New(types.T_int64)},
		},
		AggAttrs:           []string{"sum_v", "count_v"},
		StreamingThreshold: *keys / 2,
	}

	start := time.Now()
	var err error
	switch *mode {
	case "pipelined":
		err = runPipelined(proc, ep, scan, node)
	case "legacy":
		err = runLegacy(proc, scan, node)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "query failed: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	for _, bat := range scan.Batches {
		bat.Clean(mp)
	}
	logutil.Info("demo finished", logutil.QueryIdField(proc.QueryId()))
	fmt.Printf("mode=%s rows=%d keys=%d elapsed=%s\n", *mode, *rows, *keys, elapsed)
	fmt.Printf("mempool high water: %d bytes, leftover: %d bytes\n",
		mp.HighWaterMark(), mp.CurrNB())
	for i := 0; i < 2; i++ {
		info := proc.AnalInfos[i]
		fmt.Printf("operator %d: out rows=%d, time=%s\n",
			info.NodeId, info.GetOutputRows(), info.GetTimeConsumed())
	}
}

// generate builds the input as a value scan of key/value batches.
func generate(proc *process.Process, rows, keys, batchRows int) *valuescan.Node {
	desc := vm.RowDesc{
		Attrs: []string{"k", "v"},
		Types: []types.Type{types.New(types.T_int64), types.New(types.T_int64)},
	}
	scan := &valuescan.Node{Desc: desc}
	mp := proc.Mp()
	for emitted := 0; emitted < rows; {
		bat := vm.NewBatch(desc)
		n := 0
		for ; n < batchRows && emitted < rows; n++ {
			k := int64(emitted % keys)
			if err := vector.AppendFixed(bat.GetVector(0), k, false, mp); err != nil {
				fatal(err)
			}
			if err := vector.AppendFixed(bat.GetVector(1), int64(emitted), false, mp); err != nil {
				fatal(err)
			}
			emitted++
		}
		bat.SetRowCount(n)
		scan.Batches = append(scan.Batches, bat)
	}
	return scan
}

func runPipelined(proc *process.Process, ep *config.EngineParameters,
	scan *valuescan.Node, node *group.Node) error {
	s, err := pipeline.NewScheduler(int(ep.WorkerCount),
		time.Duration(ep.PollIntervalMS)*time.Millisecond)
	if err != nil {
		return err
	}
	defer s.Stop()

	q := pipeline.NewBlockQueue(int(ep.QueueCapacity),
		ep.QueuePushPolicy == config.PushPolicyBlock)
	collect := pipeline.NewCollectSink()

	f := pipeline.NewFragment(proc)
	f.AddTask(pipeline.NewExecNodeSource(scan, 0), nil, pipeline.NewStreamingAggSink(q, node))
	f.AddTask(pipeline.NewStreamingAggSource(q, node, 1), nil, collect)

	if err := f.Start(s); err != nil {
		return err
	}
	if err := f.Wait(); err != nil {
		return err
	}
	report(collect.Batches())
	for _, bat := range collect.Batches() {
		bat.Clean(proc.Mp())
	}
	return nil
}

func runLegacy(proc *process.Process, scan *valuescan.Node, node *group.Node) error {
	node.Child = scan
	node.StreamingThreshold = 0
	var out []*batch.Batch
	err := vm.Run(node, proc, func(p *process.Process, bat *batch.Batch) error {
		kept := vm.NewBatch(node.RowDesc())
		if _, err := kept.Append(p.Ctx, p.Mp(), bat); err != nil {
			return err
		}
		out = append(out, kept)
		return nil
	})
	if err != nil {
		return err
	}
	report(out)
	for _, bat := range out {
		bat.Clean(proc.Mp())
	}
	return nil
}

// report prints per-key totals for the first few groups.
func report(bats []*batch.Batch) {
	groups, printed := 0, 0
	for _, bat := range bats {
		ks := vector.MustFixedCol[int64](bat.GetVector(0))
		sums := vector.MustFixedCol[int64](bat.GetVector(1))
		counts := vector.MustFixedCol[int64](bat.GetVector(2))
		for row := 0; row < bat.RowCount(); row++ {
			if printed < 5 {
				fmt.Printf("k=%d sum=%d count=%d\n", ks[row], sums[row], counts[row])
				printed++
			}
			groups++
		}
	}
	fmt.Printf("%d result rows\n", groups)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%v\n", err)
	os.Exit(1)
}
