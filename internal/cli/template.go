package cli

const resultTemplate = `
=== {{if .DryRun}}Dry Run{{else}}Import{{end}} Result ===

Bundle:  {{.BundleID}}
Source:  {{.SourceReplica}}
Scope:   {{.Scope}}

`

const reportTemplate = `
=== Conflict Preview ===

Bundle:  {{.BundleID}}
Source:  {{.Source}}
Scope:   {{.Scope}}

`

const manifestTemplate = `
=== Export ===

Bundle:   {{.BundleID}}
Replica:  {{.ReplicaID}}
Scope:    {{.Scope}}
Exported: {{.ExportedAt.Format "2006-01-02T15:04:05Z07:00"}}

`
