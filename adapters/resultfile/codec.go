// Package resultfile serializes optimization results to a flat key/value
// text format. Encoding is canonical: fixed key order and shortest
// round-trip float formatting, so encode/decode/encode is byte-identical
// and files diff cleanly between runs.
package resultfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"phaselock/domain/core"
	"phaselock/domain/phase"
	"phaselock/domain/run"
	"phaselock/domain/secure"
)

const timeLayout = time.RFC3339Nano

// Encode writes a result in canonical form.
func Encode(w io.Writer, r *run.Result) error {
	if err := r.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	put := func(key, value string) {
		fmt.Fprintf(bw, "%s = %s\n", key, value)
	}

	put("run_id", r.RunID.String())
	put("mode_count", strconv.Itoa(r.ModeCount))
	put("seed", strconv.FormatInt(r.Seed, 10))
	put("perturb_seed", strconv.FormatInt(r.PerturbSeed, 10))
	put("threshold", formatFloat(r.Threshold))
	put("refinement_triggered", strconv.FormatBool(r.RefinementTriggered))
	put("converged", strconv.FormatBool(r.Converged))
	put("iterations", strconv.Itoa(r.Iterations))
	put("initial_energy", formatFloat(r.InitialEnergy))
	put("energy", formatFloat(r.Energy))
	put("aggregate_score", formatFloat(r.Aggregate))
	for _, name := range secure.Names() {
		value, _ := r.Metrics.Component(name)
		put("secure."+name, formatFloat(value))
	}
	for i, p := range r.Phases {
		put(fmt.Sprintf("phases.%d", i), formatFloat(p))
	}
	for i, point := range r.Trace {
		put(fmt.Sprintf("trace.%d.iteration", i), strconv.Itoa(point.Iteration))
		put(fmt.Sprintf("trace.%d.energy", i), formatFloat(point.Energy))
	}
	put("fingerprint", string(r.Fingerprint))
	put("created_at", r.CreatedAt.UTC().Format(timeLayout))

	return bw.Flush()
}

// Decode reads a result record and rejects anything malformed: bad syntax,
// unknown keys, missing fields, or values that fail to parse.
func Decode(rd io.Reader) (*run.Result, error) {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(rd)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, " = ")
		if !ok {
			return nil, fmt.Errorf("%w: line %d has no separator", core.ErrMalformedResult, lineNo)
		}
		if _, dup := fields[key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", core.ErrMalformedResult, key)
		}
		fields[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	d := decoder{fields: fields}
	result := &run.Result{
		RunID:               core.RunID(d.str("run_id")),
		ModeCount:           d.integer("mode_count"),
		Seed:                d.int64("seed"),
		PerturbSeed:         d.int64("perturb_seed"),
		Threshold:           d.float("threshold"),
		RefinementTriggered: d.boolean("refinement_triggered"),
		Converged:           d.boolean("converged"),
		Iterations:          d.integer("iterations"),
		InitialEnergy:       d.float("initial_energy"),
		Energy:              d.float("energy"),
		Aggregate:           d.float("aggregate_score"),
		Fingerprint:         core.Hash(d.str("fingerprint")),
		CreatedAt:           d.timestamp("created_at"),
	}
	for _, name := range secure.Names() {
		result.Metrics = result.Metrics.WithComponent(name, d.float("secure."+name))
	}
	if d.err != nil {
		return nil, d.err
	}

	result.Phases = make(phase.Vector, result.ModeCount)
	for i := 0; i < result.ModeCount; i++ {
		result.Phases[i] = d.float(fmt.Sprintf("phases.%d", i))
	}
	for i := 0; d.has(fmt.Sprintf("trace.%d.iteration", i)); i++ {
		result.Trace = append(result.Trace, run.TracePoint{
			Iteration: d.integer(fmt.Sprintf("trace.%d.iteration", i)),
			Energy:    d.float(fmt.Sprintf("trace.%d.energy", i)),
		})
	}
	if d.err != nil {
		return nil, d.err
	}

	if len(d.fields) > 0 {
		keys := make([]string, 0, len(d.fields))
		for k := range d.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: unknown keys %v", core.ErrMalformedResult, keys)
	}

	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedResult, err)
	}
	return result, nil
}

// WriteFile encodes a result to path, replacing any existing file.
func WriteFile(path string, r *run.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile decodes a result from path.
func ReadFile(path string) (*run.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// formatFloat uses the shortest representation that parses back to the
// identical bits, which is what makes the canonical form round-trip safe.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// decoder consumes fields one key at a time and latches the first error so
// call sites stay flat.
type decoder struct {
	fields map[string]string
	err    error
}

func (d *decoder) has(key string) bool {
	_, ok := d.fields[key]
	return ok
}

func (d *decoder) take(key string) (string, bool) {
	if d.err != nil {
		return "", false
	}
	value, ok := d.fields[key]
	if !ok {
		d.err = fmt.Errorf("%w: missing key %q", core.ErrMalformedResult, key)
		return "", false
	}
	delete(d.fields, key)
	return value, true
}

func (d *decoder) str(key string) string {
	value, _ := d.take(key)
	return value
}

func (d *decoder) integer(key string) int {
	value, ok := d.take(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		d.err = fmt.Errorf("%w: key %q: %v", core.ErrMalformedResult, key, err)
	}
	return n
}

func (d *decoder) int64(key string) int64 {
	value, ok := d.take(key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		d.err = fmt.Errorf("%w: key %q: %v", core.ErrMalformedResult, key, err)
	}
	return n
}

func (d *decoder) float(key string) float64 {
	value, ok := d.take(key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		d.err = fmt.Errorf("%w: key %q: %v", core.ErrMalformedResult, key, err)
	}
	return f
}

func (d *decoder) boolean(key string) bool {
	value, ok := d.take(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		d.err = fmt.Errorf("%w: key %q: %v", core.ErrMalformedResult, key, err)
	}
	return b
}

func (d *decoder) timestamp(key string) time.Time {
	value, ok := d.take(key)
	if !ok {
		return time.Time{}
	}
	ts, err := time.Parse(timeLayout, value)
	if err != nil {
		d.err = fmt.Errorf("%w: key %q: %v", core.ErrMalformedResult, key, err)
	}
	return ts
}
