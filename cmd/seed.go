// Package cmd provides command-line interface commands for Morakib.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"morakib/bootstrap"
	"morakib/config"
	"morakib/core"
	"morakib/service"
	"morakib/storage"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// Flags for the seed command
var (
	seedForce   bool
	seedNoColor bool
)

// NewSeedCmd creates the seed command. It populates an empty database with
// demo analysts, published SOPs from the template catalog and a batch of
// representative alerts.
func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with demo data",
		Long: `Populate the database with demo analysts, published SOPs derived from
the built-in template catalog, and a batch of representative alerts.

Seeding a non-empty database is refused unless --force is given; seeding
is additive and never deletes existing rows.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if seedNoColor {
				color.NoColor = true
			}
		},
		RunE: runSeed,
	}
	cmd.Flags().BoolVar(&seedForce, "force", false, "seed even when the database already has users")
	cmd.Flags().BoolVar(&seedNoColor, "no-color", false, "disable colored output")
	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		errorColor.Fprintf(os.Stderr, "✗ Failed to load config: %v\n", err)
		return err
	}

	_, sugar, err := bootstrap.InitLogger(cfg)
	if err != nil {
		return err
	}
	if err := bootstrap.EnsureDataDirectories(cfg); err != nil {
		return err
	}

	db, err := storage.NewSQLite(cfg.DataPaths.SQLitePath, sugar)
	if err != nil {
		errorColor.Fprintf(os.Stderr, "✗ Failed to open database: %v\n", err)
		return err
	}
	defer db.Close()

	users := storage.NewSQLiteUserStorage(db, sugar)
	sops := storage.NewSQLiteSOPStorage(db, sugar)
	alerts := storage.NewSQLiteAlertStorage(db, sugar)
	investigations := storage.NewSQLiteInvestigationStorage(db, sugar)
	analystMetrics := storage.NewSQLiteMetricStorage(db, sugar)

	count, err := users.CountUsers()
	if err != nil {
		return err
	}
	if count > 0 && !seedForce {
		errorColor.Fprintf(os.Stderr, "✗ Database already has %d users, refusing to seed (use --force)\n", count)
		return fmt.Errorf("database not empty")
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Seeding database..."
	s.Start()

	policy := core.ResolutionPolicy{ClearOnReopen: cfg.Alerts.ClearResolvedOnReopen}
	investigationSvc := service.NewInvestigationService(
		db, alerts, users, investigations, analystMetrics, policy, sugar)

	seeded, err := seedAll(cfg, users, sops, alerts, investigationSvc)
	s.Stop()
	if err != nil {
		errorColor.Fprintf(os.Stderr, "✗ Seeding failed: %v\n", err)
		return err
	}

	successColor.Printf("✓ Seeded %d users, %d SOPs, %d alerts, %d investigations\n",
		seeded.users, seeded.sops, seeded.alerts, seeded.investigations)
	if cfg.Auth.DemoMode {
		infoColor.Printf("  Demo login: %s / %s\n", cfg.Auth.DemoEmail, cfg.Auth.DemoPassword)
	}
	return nil
}

type seedCounts struct {
	users          int
	sops           int
	alerts         int
	investigations int
}

func seedAll(
	cfg *config.Config,
	users *storage.SQLiteUserStorage,
	sops *storage.SQLiteSOPStorage,
	alerts *storage.SQLiteAlertStorage,
	investigations *service.InvestigationService,
) (*seedCounts, error) {
	counts := &seedCounts{}

	team := seedTeam(cfg)
	for _, user := range team {
		if err := users.CreateUser(user); err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", user.Email, err)
		}
		counts.users++
	}

	lead := team[0]
	for _, sop := range seedSOPs(lead.ID) {
		if err := sops.CreateSOP(sop); err != nil {
			return nil, fmt.Errorf("failed to create SOP %s: %w", sop.Slug, err)
		}
		counts.sops++
	}

	batch := seedAlerts(team)
	for _, alert := range batch {
		if err := alerts.CreateAlert(alert); err != nil {
			return nil, fmt.Errorf("failed to create alert %q: %w", alert.Title, err)
		}
		counts.alerts++
	}

	// A couple of completed investigations so the dashboard and per-analyst
	// metrics have history on first run.
	submissions := []service.SubmitRequest{
		{
			AlertID:          batch[0].ID,
			AnalystID:        team[1].ID,
			Findings:         "Source IP confirmed on multiple blocklists, targeted accounts locked",
			Conclusion:       core.ConclusionTruePositive,
			ActionsTaken:     []string{"Blocked source IP at perimeter", "Forced password reset on targeted accounts"},
			TimeSpentMinutes: 35,
		},
		{
			AlertID:          batch[4].ID,
			AnalystID:        team[2].ID,
			Findings:         "Reported message is a known newsletter, link resolves to a legitimate domain",
			Conclusion:       core.ConclusionFalsePositive,
			ActionsTaken:     []string{"Closed report", "Updated mail filter allowlist"},
			TimeSpentMinutes: 10,
		},
	}
	for _, req := range submissions {
		if _, err := investigations.Submit(context.Background(), req); err != nil {
			return nil, fmt.Errorf("failed to seed investigation for %s: %w", req.AlertID, err)
		}
		counts.investigations++
	}
	return counts, nil
}

// seedTeam builds the demo analyst roster. The first entry is the team lead.
func seedTeam(cfg *config.Config) []*core.User {
	password := "morakib-demo"
	if cfg.Auth.DemoMode && cfg.Auth.DemoPassword != "" {
		password = cfg.Auth.DemoPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt only fails on invalid cost
		panic(err)
	}

	roster := []struct {
		email string
		name  string
		role  core.UserRole
	}{
		{"lead@morakib.local", "Sarah Bennani", core.UserRoleLead},
		{"senior@morakib.local", "Karim Alaoui", core.UserRoleAnalystSenior},
		{"analyst1@morakib.local", "Youssef Tazi", core.UserRoleAnalystJunior},
		{"analyst2@morakib.local", "Fatima Zahra", core.UserRoleAnalystJunior},
	}

	team := make([]*core.User, 0, len(roster)+1)
	for _, entry := range roster {
		user := core.NewUser(entry.email, entry.name)
		user.Role = entry.role
		user.TeamID = "blue-team-alpha"
		user.PasswordHash = string(hash)
		team = append(team, user)
	}

	if cfg.Auth.DemoMode {
		demo := core.NewUser(cfg.Auth.DemoEmail, "Demo Analyst")
		demo.Role = core.UserRoleAnalystSenior
		demo.TeamID = "blue-team-alpha"
		demo.PasswordHash = string(hash)
		team = append(team, demo)
	}
	return team
}

// seedSOPs publishes one stored SOP per catalog template, carrying over the
// category, alert types and flattened checklist.
func seedSOPs(createdByID string) []*core.SOP {
	templates, err := core.SOPTemplates()
	if err != nil {
		return nil
	}

	out := make([]*core.SOP, 0, len(templates))
	for _, tpl := range templates {
		sop := core.NewSOP(tpl.Title)
		sop.Category = tpl.Category
		sop.Status = core.SOPStatusPublished
		sop.AlertTypes = tpl.AlertTypes
		sop.ContentMarkdown = tpl.Description
		sop.CreatedByID = createdByID
		for _, step := range tpl.Steps {
			sop.Checklist = append(sop.Checklist, step.Checklist...)
		}
		out = append(out, sop)
	}
	return out
}

// seedAlerts builds a batch of representative alerts across sources and
// severities, including one already assigned for triage.
func seedAlerts(team []*core.User) []*core.Alert {
	junior := team[len(team)-1]

	ssh := core.NewAlert("SSH brute force from 185.234.219.47")
	ssh.Description = "1247 failed SSH login attempts in 30 minutes"
	ssh.Severity = core.AlertSeverityHigh
	ssh.Source = core.AlertSourceSuricata
	ssh.SourceIP = "185.234.219.47"
	ssh.DestIP = "192.168.1.10"
	ssh.DestPort = intPtr(22)
	ssh.Protocol = "TCP"
	ssh.RuleName = "ET COMPROMISED Host Traffic"
	ssh.RuleID = "2024897"
	ssh.EnrichmentData = core.JSONMap{
		"abuseipdb":  map[string]interface{}{"score": 92, "country": "RU", "reports": 156},
		"virustotal": map[string]interface{}{"detected": true, "engines": 8},
	}

	dga := core.NewAlert("DNS queries to DGA domain xkj7h2m9.xyz")
	dga.Description = "High-entropy DNS lookups from an internal workstation"
	dga.Severity = core.AlertSeverityCritical
	dga.Source = core.AlertSourceZeek
	dga.SourceIP = "192.168.1.45"
	dga.DestIP = "8.8.8.8"
	dga.DestPort = intPtr(53)
	dga.Protocol = "UDP"
	dga.RuleName = "DNS_DGA_DETECTED"
	dga.EnrichmentData = core.JSONMap{
		"entropy": 4.2,
		"domain":  "xkj7h2m9.xyz",
	}

	scan := core.NewAlert("Port scan attempt from external host")
	scan.Description = "SYN scan detected from external IP"
	scan.Severity = core.AlertSeverityMedium
	scan.Source = core.AlertSourceSuricata
	scan.SourceIP = "45.227.252.87"
	scan.DestIP = "192.168.1.0/24"
	scan.Protocol = "TCP"
	scan.RuleName = "ET SCAN Potential SYN Scan"
	scan.Status = core.AlertStatusInvestigating
	scan.AssignedToID = junior.ID

	exe := core.NewAlert("Suspicious executable download")
	exe.Description = "PE32 binary fetched from a low-reputation domain"
	exe.Severity = core.AlertSeverityHigh
	exe.Source = core.AlertSourceZeek
	exe.SourceIP = "192.168.1.89"
	exe.DestIP = "104.21.45.123"
	exe.DestPort = intPtr(443)
	exe.Protocol = "TCP"
	exe.EnrichmentData = core.JSONMap{
		"filename": "update.exe",
		"mime":     "application/x-dosexec",
	}

	phish := core.NewAlert("Phishing email with credential harvester link")
	phish.Description = "Reported email pointing to a cloned webmail portal"
	phish.Severity = core.AlertSeverityMedium
	phish.Source = core.AlertSourceFilebeat
	phish.RuleName = "PHISHING_URL_DETECTED"

	return []*core.Alert{ssh, dga, scan, exe, phish}
}

func intPtr(i int) *int {
	return &i
}
