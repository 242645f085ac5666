/*
Package sizediff explains why one filesystem image is bigger than another.

It compares two extracted trees, for example successive firmware builds,
pairs every file with its most plausible predecessor, classifies it and
measures what shipping the change would cost with a set of delta and
compression backends.

# Overview

A comparison runs in four steps:
  - both trees are listed into flat FileTree values, symlinks included
  - the Reconciler pairs and classifies files as New, Removed, Same or Updated
  - every enabled, available backend runs over the changed files through the DiffCache
  - Aggregate rolls the results up per caller-defined group and overall

# Pairing

A "to" file is paired with the "from" file at the identical path when there
is one. Otherwise these rules propose candidates:
  - versioned shared objects: libfoo.so.1 pairs with libfoo.so.2 or libfoo-2.0.so
  - libexec moves: usr/libexec/helper pairs with usr/lib/helper
  - symlink churn: a file that replaced a symlink pairs with the link's old target, and the reverse

A single unclaimed candidate is the predecessor. Several candidates make the
match ambiguous: the file is reported as New and an AmbiguousMatch warning
lists the candidates. A "from" file is the predecessor of at most one "to"
file.

# Cache

Backend artifacts are stored in a flat directory under names derived from
the content digests of their inputs:

	<digest>[-<digest>].<extension>

An artifact exists only once its backend succeeded: it is written under a
temporary name and renamed into place. A rerun over unchanged content
invokes no backend at all.

# Basic Usage

	d, err := sizediff.New(".sizediff-cache",
	    sizediff.WithBackends(backends.Defaults()...),
	    sizediff.WithGroups(sizediff.GroupSpec{Name: "libraries", Pattern: "usr/lib/**"}),
	)
	if err != nil {
	    log.Fatalf("Invalid configuration: %v", err)
	}

	report, err := d.Compare(ctx, "build-41/rootfs", "build-42/rootfs")
	if err != nil {
	    log.Fatalf("Comparison failed: %v", err)
	}

	for _, g := range report.Groups {
	    fmt.Printf("%s: %d bytes changed, %d with xdelta3\n",
	        g.Name, g.DiffSize, g.BackendTotals["xdelta3"])
	}

# Error Handling

Configuration problems are returned by New as a *ValidationError matching
ErrConfig. During Compare, an unreadable tree or file (ErrIO) and a failing
backend (ErrBackendExecution, as a *BackendError) abort the comparison and
no report is returned. A backend that is not installed is skipped for the
run; its totals are absent rather than zero, see Report.CheckBackend.
*/
package sizediff
