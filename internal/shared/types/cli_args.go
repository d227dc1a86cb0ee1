package types

// CLIArgs represents the command-line arguments.
type CLIArgs struct {
	ConfigFile    string
	BackfillStart string
	BackfillEnd   string
	Days          int
	DryRun        bool
	Resume        bool
	ResumeDate    string
	AutoResume    bool
	ReportName    string
	ReportType    []string
	Dir           string
	Verbose       bool
	Quiet         bool
}

// BackfillRequested indica se algum dos modos de backfill foi acionado.
func (a *CLIArgs) BackfillRequested() bool {
	return a.Days > 0 || a.BackfillStart != "" || a.BackfillEnd != ""
}
