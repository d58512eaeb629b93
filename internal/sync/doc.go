// Package sync pushes the tracking hierarchy of LIMS projects to Charon.
//
// A Manager handles one project: it fetches the project from a lims.Source,
// builds its documents with the hierarchy builder, orders them parents first
// and pushes each one through a Remote. Push failures are counted per
// document and never stop the project; only fetch and build failures are
// reported as an Error.
//
// ResolveProjects turns a Selection (one project, recent projects or all
// projects) into the list of project ids a run processes. The coordinator
// subpackage fans that list out over a pool of workers, each with its own
// Manager.
package sync
