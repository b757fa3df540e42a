// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

/*
Package services provides suture.Service wrappers for waitcore's two
long-lived components, translating their native lifecycle patterns into
suture's context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections
  - Used for internal/statusapi's read-only status endpoint

Pipeline Driver (PipelineService):
  - Runs a RunFunc once per occurrence of a daily Schedule
  - A failed occurrence is logged and does not stop the service; the
    next scheduled occurrence still runs
  - Used to drive the daily merge-staging + ingest + train-batch +
    build-posted-aggregates run (merge-staging is described in
    SPEC_FULL.md §6.5)

# Usage Example

	import (
	    "net/http"
	    "time"

	    "github.com/openwaits/waitcore/internal/supervisor"
	    "github.com/openwaits/waitcore/internal/supervisor/services"
	)

	func setupSupervisor(server *http.Server, runMorningPipeline services.RunFunc) {
	    tree, _ := supervisor.NewSupervisorTree(logger, config)

	    httpSvc := services.NewHTTPServerService(server, 30*time.Second)
	    tree.AddLiveService(httpSvc)

	    pipelineSvc := services.NewPipelineService("morning-merge", runMorningPipeline,
	        services.Schedule{Hour: 6, Minute: 0, Location: time.UTC})
	    tree.AddPipelineService(pipelineSvc)

	    tree.Serve(ctx)
	}

# Lifecycle Patterns

ListenAndServe pattern (HTTPServerService):

	type Listener interface {
	    ListenAndServe() error
	    Shutdown(ctx context.Context) error
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    go s.server.ListenAndServe()
	    <-ctx.Done()
	    return s.server.Shutdown(shutdownCtx)
	}

Scheduled-run pattern (PipelineService):

	// Wrapped as:
	func (s *PipelineService) Serve(ctx context.Context) error {
	    for {
	        select {
	        case <-ctx.Done():
	            return ctx.Err()
	        case <-time.After(untilNextOccurrence):
	            s.run(ctx)
	        }
	    }
	}

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

PipelineService deliberately does not follow this convention for a
single failed occurrence: a bad morning-merge run logs and waits for
the next scheduled time rather than returning an error, so a transient
failure doesn't trigger supervisor-level backoff for the whole service.

# Service Identification

All services implement fmt.Stringer for logging; suture uses this for
its own event log:

	INFO http-server: starting
	INFO pipeline-service[morning-merge]: starting

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/statusapi: consumer of HTTPServerService
*/
package services
