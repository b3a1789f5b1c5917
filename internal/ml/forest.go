package ml

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"
)

const (
	forestName    = "random_forest"
	forestVersion = "v1"

	// blobMagic guards Restore against feeding it arbitrary bytes.
	blobMagic = "ztsb-forest"
)

// ForestConfig controls the bagged regression-tree ensemble.
type ForestConfig struct {
	NumTrees         int   // default 100
	MaxDepth         int   // default 12
	MinLeafSize      int   // default 5
	FeaturesPerSplit int   // default numFeatures/3, min 1
	Seed             int64 // default 42
	Parallelism      int   // tree-building workers, default GOMAXPROCS
}

func (c ForestConfig) withDefaults() ForestConfig {
	if c.NumTrees <= 0 {
		c.NumTrees = 100
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 12
	}
	if c.MinLeafSize <= 0 {
		c.MinLeafSize = 5
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.GOMAXPROCS(0)
	}
	return c
}

// node is one regression-tree node. Leaves have Left == nil.
// Fields are exported for gob serialization only.
type node struct {
	Feature   int
	Threshold float64
	Value     float64
	Left      *node
	Right     *node
}

// forestState is an immutable snapshot of trained parameters. Train and
// Restore build a fresh snapshot and swap it in; Predict only ever reads a
// snapshot, so readers never observe a half-trained model.
type forestState struct {
	Trees       []*node
	NumFeatures int
	SampleCount int
	TrainedAt   time.Time
}

// Forest is a random-forest regressor over fixed-width feature vectors.
// Safe for concurrent use: many readers, single writer.
type Forest struct {
	cfg ForestConfig

	mu    sync.RWMutex
	state *forestState
}

// NewForest creates an untrained forest. Predict fails with ErrUntrained
// until Train or Restore succeeds.
func NewForest(cfg ForestConfig) *Forest {
	return &Forest{cfg: cfg.withDefaults()}
}

func (f *Forest) Name() string    { return forestName }
func (f *Forest) Version() string { return forestVersion }

// Stats describes the current trained state.
type Stats struct {
	Trained     bool      `json:"trained"`
	Trees       int       `json:"trees"`
	SampleCount int       `json:"sample_count"`
	TrainedAt   time.Time `json:"trained_at,omitzero"`
}

func (f *Forest) Stats() Stats {
	f.mu.RLock()
	st := f.state
	f.mu.RUnlock()

	if st == nil {
		return Stats{}
	}
	return Stats{
		Trained:     true,
		Trees:       len(st.Trees),
		SampleCount: st.SampleCount,
		TrainedAt:   st.TrainedAt,
	}
}

// Train fits the ensemble to the labeled samples, replacing any prior fit.
// Trees are built on bootstrap resamples with per-tree seeded RNGs, so a
// given (samples, config) pair always yields the same forest regardless of
// worker scheduling.
func (f *Forest) Train(ctx context.Context, samples []Sample) error {
	if len(samples) == 0 {
		return fmt.Errorf("%w: no samples", ErrInvalidTrainingSet)
	}
	numFeatures := len(samples[0].Features)
	if numFeatures == 0 {
		return fmt.Errorf("%w: zero-width feature vectors", ErrInvalidTrainingSet)
	}
	for i, s := range samples {
		if len(s.Features) != numFeatures {
			return fmt.Errorf("%w: sample %d has %d features, expected %d",
				ErrInvalidTrainingSet, i, len(s.Features), numFeatures)
		}
		if math.IsNaN(s.Label) {
			return fmt.Errorf("%w: sample %d has NaN label", ErrInvalidTrainingSet, i)
		}
	}

	mtry := f.cfg.FeaturesPerSplit
	if mtry <= 0 {
		mtry = numFeatures / 3
	}
	if mtry < 1 {
		mtry = 1
	}
	if mtry > numFeatures {
		mtry = numFeatures
	}

	trees := make([]*node, f.cfg.NumTrees)
	sem := make(chan struct{}, f.cfg.Parallelism)
	var wg sync.WaitGroup

	for t := 0; t < f.cfg.NumTrees; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(t int) {
			defer wg.Done()
			defer func() { <-sem }()
			rng := rand.New(rand.NewSource(f.cfg.Seed + int64(t)*7919))
			trees[t] = f.buildTree(bootstrap(samples, rng), numFeatures, mtry, 0, rng)
		}(t)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	st := &forestState{
		Trees:       trees,
		NumFeatures: numFeatures,
		SampleCount: len(samples),
		TrainedAt:   time.Now().UTC(),
	}

	f.mu.Lock()
	f.state = st
	f.mu.Unlock()
	return nil
}

// Predict averages the tree outputs and clamps the result to [0,100].
func (f *Forest) Predict(features []float64) (float64, error) {
	f.mu.RLock()
	st := f.state
	f.mu.RUnlock()

	if st == nil {
		return 0, ErrUntrained
	}
	if len(features) != st.NumFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", st.NumFeatures, len(features))
	}

	sum := 0.0
	for _, t := range st.Trees {
		sum += evalTree(t, features)
	}
	score := sum / float64(len(st.Trees))
	return clampScore(score), nil
}

// Confidence estimates prediction reliability from tree agreement: tight
// ensembles score near 1, scattered ones near 0.
func (f *Forest) Confidence(features []float64) (float64, error) {
	f.mu.RLock()
	st := f.state
	f.mu.RUnlock()

	if st == nil {
		return 0, ErrUntrained
	}
	if len(features) != st.NumFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", st.NumFeatures, len(features))
	}

	n := float64(len(st.Trees))
	sum, sumSq := 0.0, 0.0
	for _, t := range st.Trees {
		v := evalTree(t, features)
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	std := math.Sqrt(variance)

	// A 25-point spread across trees marks a prediction as fully uncertain.
	conf := 1 - std/25.0
	if conf < 0 {
		conf = 0
	}
	return conf, nil
}

// persistEnvelope is the serialized artifact layout.
type persistEnvelope struct {
	Magic   string
	Version string
	State   *forestState
}

// Persist serializes the trained parameters. Fails with ErrUntrained on an
// untrained forest since an empty artifact would restore into a model that
// silently rejects every prediction.
func (f *Forest) Persist() ([]byte, error) {
	f.mu.RLock()
	st := f.state
	f.mu.RUnlock()

	if st == nil {
		return nil, ErrUntrained
	}

	var buf bytes.Buffer
	env := persistEnvelope{Magic: blobMagic, Version: forestVersion, State: st}
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("encoding model state: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore replaces the trained parameters from a Persist blob. Decoding into
// a scratch envelope first means a corrupt blob leaves the prior fit intact.
func (f *Forest) Restore(data []byte) error {
	var env persistEnvelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return fmt.Errorf("decoding model state: %w", err)
	}
	if env.Magic != blobMagic {
		return fmt.Errorf("not a %s artifact", forestName)
	}
	if env.Version != forestVersion {
		return fmt.Errorf("artifact version %q does not match model version %q", env.Version, forestVersion)
	}
	if env.State == nil || len(env.State.Trees) == 0 || env.State.NumFeatures <= 0 {
		return fmt.Errorf("artifact contains no trained state")
	}

	f.mu.Lock()
	f.state = env.State
	f.mu.Unlock()
	return nil
}

// buildTree grows one CART regression tree on the (bootstrapped) sample set.
func (f *Forest) buildTree(samples []Sample, numFeatures, mtry, depth int, rng *rand.Rand) *node {
	if depth >= f.cfg.MaxDepth || len(samples) < 2*f.cfg.MinLeafSize {
		return leaf(samples)
	}

	feature, threshold, ok := f.bestSplit(samples, numFeatures, mtry, rng)
	if !ok {
		return leaf(samples)
	}

	left := make([]Sample, 0, len(samples)/2)
	right := make([]Sample, 0, len(samples)/2)
	for _, s := range samples {
		if s.Features[feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leaf(samples)
	}

	return &node{
		Feature:   feature,
		Threshold: threshold,
		Left:      f.buildTree(left, numFeatures, mtry, depth+1, rng),
		Right:     f.buildTree(right, numFeatures, mtry, depth+1, rng),
	}
}

// bestSplit scans a random feature subset for the (feature, threshold) pair
// minimizing the summed squared error of the two children.
func (f *Forest) bestSplit(samples []Sample, numFeatures, mtry int, rng *rand.Rand) (int, float64, bool) {
	n := len(samples)

	totalSum, totalSq := 0.0, 0.0
	for _, s := range samples {
		totalSum += s.Label
		totalSq += s.Label * s.Label
	}
	// Pure node: nothing to gain by splitting.
	if totalSq-totalSum*totalSum/float64(n) < 1e-12 {
		return 0, 0, false
	}

	bestSSE := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	order := make([]int, n)
	candidates := rng.Perm(numFeatures)[:mtry]

	for _, feature := range candidates {
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool {
			return samples[order[a]].Features[feature] < samples[order[b]].Features[feature]
		})

		leftSum, leftSq := 0.0, 0.0
		for i := 0; i < n-1; i++ {
			y := samples[order[i]].Label
			leftSum += y
			leftSq += y * y

			cur := samples[order[i]].Features[feature]
			next := samples[order[i+1]].Features[feature]
			if cur == next {
				continue
			}

			nl := i + 1
			nr := n - nl
			if nl < f.cfg.MinLeafSize || nr < f.cfg.MinLeafSize {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) +
				(rightSq - rightSum*rightSum/float64(nr))
			if sse < bestSSE {
				bestSSE = sse
				bestFeature = feature
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func leaf(samples []Sample) *node {
	sum := 0.0
	for _, s := range samples {
		sum += s.Label
	}
	v := 0.0
	if len(samples) > 0 {
		v = sum / float64(len(samples))
	}
	return &node{Feature: -1, Value: v}
}

func evalTree(n *node, features []float64) float64 {
	for n.Left != nil {
		if features[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

func bootstrap(samples []Sample, rng *rand.Rand) []Sample {
	out := make([]Sample, len(samples))
	for i := range out {
		out[i] = samples[rng.Intn(len(samples))]
	}
	return out
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
