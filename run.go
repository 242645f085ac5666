package sizediff

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// job is one backend applied to one pairing.
type job struct {
	pairing *Pairing
	backend Backend
	mode    Mode
}

// jobMode picks how a backend applies to a classification. Updated files get
// a delta when the backend supports one and are otherwise compressed as a
// whole; New and Removed files can only be compressed.
func jobMode(kind Kind, modes Mode) (Mode, bool) {
	switch kind {
	case KindUpdated:
		if modes.Has(ModeDelta) {
			return ModeDelta, true
		}
		if modes.Has(ModeStandalone) {
			return ModeStandalone, true
		}
	case KindNew, KindRemoved:
		if modes.Has(ModeStandalone) {
			return ModeStandalone, true
		}
	}
	return 0, false
}

// runBackends computes every applicable backend result and attaches it to
// its pairing. Distinct keys run in parallel; the stages of one chain run in
// sequence. The first failure cancels the remaining jobs.
func (d *Differ) runBackends(ctx context.Context, hasher *Hasher, pairings []*Pairing, backends []Backend) error {
	var jobs []job
	for _, p := range pairings {
		for _, b := range backends {
			if mode, ok := jobMode(p.Kind, b.Modes()); ok {
				jobs = append(jobs, job{pairing: p, backend: b, mode: mode})
			}
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	results := make([]BackendResult, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			r, err := d.runJob(ctx, hasher, j)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, j := range jobs {
		if j.pairing.Results == nil {
			j.pairing.Results = make(map[string]BackendResult)
		}
		j.pairing.Results[j.backend.Name()] = results[i]
	}
	return nil
}

func (d *Differ) runJob(ctx context.Context, hasher *Hasher, j job) (BackendResult, error) {
	var from, to string
	switch {
	case j.mode == ModeDelta:
		from, to = j.pairing.From.AbsPath, j.pairing.To.AbsPath
	case j.pairing.To != nil:
		to = j.pairing.To.AbsPath
	default:
		to = j.pairing.From.AbsPath
	}

	var digests []string
	for _, p := range []string{from, to} {
		if p == "" {
			continue
		}
		digest, err := hasher.Digest(p)
		if err != nil {
			return BackendResult{}, err
		}
		digests = append(digests, digest)
	}

	start := d.nowFunc()
	artifact, err := d.produce(ctx, j.backend, digests, from, to)
	if err != nil {
		return BackendResult{}, err
	}
	elapsed := d.nowFunc().Sub(start)

	d.logger.Debug("backend result",
		"backend", j.backend.Name(), "file", j.pairing.Path(),
		"size", artifact.Size, "cached", artifact.Cached, "elapsed", elapsed)

	return BackendResult{
		Backend:  j.backend.Name(),
		Size:     artifact.Size,
		Elapsed:  elapsed,
		Cached:   artifact.Cached,
		Artifact: artifact.Path,
	}, nil
}

// keyFor derives the cache key of backend b over inputs with digests. A
// chain's key extends its inner stage's key, so every stage is addressable.
func keyFor(b Backend, digests []string) Key {
	if c, ok := b.(*chain); ok {
		return keyFor(c.inner, digests).Then(c.outer.Extension())
	}
	return Key{Digests: digests, Ext: b.Extension()}
}

// produce returns the artifact of b over (from, to), computing it through
// the cache. A chain first produces its inner artifact under its own key and
// then compresses that artifact, so an intermediate result is shared with
// the plain inner backend.
func (d *Differ) produce(ctx context.Context, b Backend, digests []string, from, to string) (Artifact, error) {
	key := keyFor(b, digests)

	if c, ok := b.(*chain); ok {
		inner, err := d.produce(ctx, c.inner, digests, from, to)
		if err != nil {
			return Artifact{}, err
		}
		artifact, err := d.cache.GetOrCompute(key, d.invoke(ctx, c.outer, key, "", inner.Path))
		artifact.Cached = artifact.Cached && inner.Cached
		return artifact, err
	}

	return d.cache.GetOrCompute(key, d.invoke(ctx, b, key, from, to))
}

// invoke adapts a backend run into a cache computation.
func (d *Differ) invoke(ctx context.Context, b Backend, key Key, from, to string) ComputeFunc {
	return func(out string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := d.nowFunc()
		if err := b.Run(ctx, from, to, out); err != nil {
			return &BackendError{Backend: b.Name(), Key: key.Name(), Err: err}
		}
		d.logger.Debug("backend ran", "backend", b.Name(), "key", key.Name(),
			"elapsed", d.nowFunc().Sub(start))
		return nil
	}
}
