package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"neofab/internal/api"
	"neofab/internal/app"
	"neofab/internal/config"
	"neofab/internal/core"
	"neofab/internal/model"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Submit", "Serve").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(context.Background(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// actorRef returns the acting user for the current invocation: the --actor
// flag, then NEOFAB_ACTOR, then the OS username.
func actorRef(cmd *cobra.Command) string {
	if actor, _ := cmd.Flags().GetString("actor"); actor != "" {
		return actor
	}
	if actor := os.Getenv("NEOFAB_ACTOR"); actor != "" {
		return actor
	}
	return os.Getenv("USER")
}

// readPassphrase prompts for a passphrase without echoing it. Falls back to
// NEOFAB_PASSPHRASE for non-interactive use.
func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv("NEOFAB_PASSPHRASE"); p != "" {
		return p, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(data), nil
}

// unlockIfEncrypted unlocks the blob store for reads when encryption is on.
func unlockIfEncrypted(a *app.App) error {
	if !a.Encrypted() {
		return nil
	}
	passphrase, err := readPassphrase("Key passphrase: ")
	if err != nil {
		return err
	}
	return a.Unlock(passphrase)
}

var rootCmd = &cobra.Command{
	Use:   "neofab",
	Short: "3D print lab job tracker",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Store:      %s\n", cfg.Store.Type)
		fmt.Printf("Blob Store: %s\n", cfg.BlobStore.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("Notify:     %s\n", cfg.Notify.Type)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var configKeysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the attachment encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("KeysInit")
		if err != nil {
			return err
		}
		defer a.Close()

		enc := a.Encryptor()
		if enc == nil {
			return fmt.Errorf("encryption is disabled in config (set [encryption] type)")
		}
		if enc.IsConfigured() {
			return fmt.Errorf("encryption keys already exist")
		}

		passphrase, err := readPassphrase("New key passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// project command
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage print projects",
}

var projectSubmitCmd = &cobra.Command{
	Use:   "submit TITLE",
	Short: "Submit a new print project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, _ := cmd.Flags().GetString("desc")

		a, err := newApp("Submit")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Service().SubmitProject(cmd.Context(), actorRef(cmd), args[0], desc)
		if err != nil {
			return err
		}

		fmt.Printf("Submitted project %s (%s)\n", p.ID, p.Status)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		status, _ := cmd.Flags().GetString("status")

		a, err := newApp("ListProjects")
		if err != nil {
			return err
		}
		defer a.Close()

		projects, err := a.Service().Projects(cmd.Context(), core.ProjectFilter{
			OwnerID: owner,
			Status:  model.ProjectStatus(status),
		})
		if err != nil {
			return err
		}

		if len(projects) == 0 {
			fmt.Println("No projects.")
			return nil
		}
		for _, p := range projects {
			fmt.Printf("%s  %-13s  %-10s  %s\n", p.ID, p.Status, p.OwnerID, p.Title)
		}
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show PROJECT_ID",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ShowProject")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Service().Project(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Project:  %s\n", p.ID)
		fmt.Printf("Title:    %s\n", p.Title)
		fmt.Printf("Owner:    %s\n", p.OwnerID)
		fmt.Printf("Status:   %s\n", p.Status)
		fmt.Printf("Version:  %d\n", p.Version)
		fmt.Printf("Created:  %s\n", p.CreatedAt.Format("2006-01-02 15:04:05"))
		if p.Description != "" {
			fmt.Printf("\n%s\n", p.Description)
		}
		return nil
	},
}

var projectStatusCmd = &cobra.Command{
	Use:   "status PROJECT_ID STATUS",
	Short: "Request a project status transition",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")

		a, err := newApp("ProjectStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		ev, err := a.Service().RequestTransition(cmd.Context(),
			model.ProjectRef(args[0]), args[1], actorRef(cmd), reason)
		if err != nil {
			return err
		}

		fmt.Printf("Project %s: %s -> %s\n", args[0], ev.From, ev.To)
		return nil
	},
}

// job command
var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage print jobs",
}

var jobCreateCmd = &cobra.Command{
	Use:   "create PROJECT_ID",
	Short: "Create a print job under an approved project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, _ := cmd.Flags().GetString("printer")
		material, _ := cmd.Flags().GetString("material")
		color, _ := cmd.Flags().GetString("color")
		priority, _ := cmd.Flags().GetInt("priority")
		deadlineStr, _ := cmd.Flags().GetString("deadline")

		var deadline *time.Time
		if deadlineStr != "" {
			d, err := time.Parse("2006-01-02", deadlineStr)
			if err != nil {
				return fmt.Errorf("invalid deadline (want YYYY-MM-DD): %w", err)
			}
			deadline = &d
		}

		a, err := newApp("CreateJob")
		if err != nil {
			return err
		}
		defer a.Close()

		j, err := a.Service().CreatePrintJob(cmd.Context(), args[0], actorRef(cmd), core.PrintJobSpec{
			PrinterID:  printer,
			MaterialID: material,
			ColorID:    color,
			Priority:   priority,
			Deadline:   deadline,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Created print job %s (%s)\n", j.ID, j.Status)
		return nil
	},
}

var jobListCmd = &cobra.Command{
	Use:   "list PROJECT_ID",
	Short: "List a project's print jobs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListJobs")
		if err != nil {
			return err
		}
		defer a.Close()

		jobs, err := a.Service().PrintJobs(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if len(jobs) == 0 {
			fmt.Println("No print jobs.")
			return nil
		}
		for _, j := range jobs {
			deadline := ""
			if j.Deadline != nil {
				deadline = "  due:" + j.Deadline.Format("2006-01-02")
			}
			fmt.Printf("%s  %-9s  prio:%d%s\n", j.ID, j.Status, j.Priority, deadline)
		}
		return nil
	},
}

var jobStatusCmd = &cobra.Command{
	Use:   "status JOB_ID STATUS",
	Short: "Request a print job status transition",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")

		a, err := newApp("JobStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		ev, err := a.Service().RequestTransition(cmd.Context(),
			model.PrintJobRef(args[0]), args[1], actorRef(cmd), reason)
		if err != nil {
			return err
		}

		fmt.Printf("Print job %s: %s -> %s\n", args[0], ev.From, ev.To)
		return nil
	},
}

// attach command
var attachCmd = &cobra.Command{
	Use:   "attach SUBJECT_ID FILE",
	Short: "Attach a file to a project (or, with --job, a print job)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		note, _ := cmd.Flags().GetString("note")
		quantity, _ := cmd.Flags().GetInt("quantity")
		isJob, _ := cmd.Flags().GetBool("job")

		content, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		subject := model.ProjectRef(args[0])
		if isJob {
			subject = model.PrintJobRef(args[0])
		}

		a, err := newApp("Attach")
		if err != nil {
			return err
		}
		defer a.Close()

		att, err := a.Service().Attach(cmd.Context(), core.AttachInput{
			Subject:  subject,
			Kind:     model.AttachmentKind(kind),
			Name:     args[1],
			Content:  content,
			Uploader: actorRef(cmd),
			Note:     note,
			Quantity: quantity,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Attached %s (%d bytes, hash %s)\n", att.ID, att.Size, att.ContentHash[:12])
		return nil
	},
}

var attachmentCmd = &cobra.Command{
	Use:   "attachment",
	Short: "Work with stored attachments",
}

var attachmentGetCmd = &cobra.Command{
	Use:   "get ATTACHMENT_ID",
	Short: "Download an attachment's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		a, err := newApp("GetAttachment")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := unlockIfEncrypted(a); err != nil {
			return err
		}

		w := os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		att, err := a.Service().OpenAttachment(cmd.Context(), args[0], w)
		if err != nil {
			return err
		}

		if out != "" {
			fmt.Printf("Wrote %s (%d bytes) to %s\n", att.OriginalName, att.Size, out)
		}
		return nil
	},
}

// message command
var messageCmd = &cobra.Command{
	Use:   "message PROJECT_ID BODY",
	Short: "Post a message on a project's thread",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("PostMessage")
		if err != nil {
			return err
		}
		defer a.Close()

		m, err := a.Service().PostMessage(cmd.Context(), args[0], actorRef(cmd), args[1])
		if err != nil {
			return err
		}

		fmt.Printf("Posted message %s\n", m.ID)
		return nil
	},
}

// timeline command
var timelineCmd = &cobra.Command{
	Use:   "timeline PROJECT_ID",
	Short: "View a project's merged event and message history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Timeline")
		if err != nil {
			return err
		}
		defer a.Close()

		seq, err := a.Service().Timeline(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		for entry := range seq {
			ts := entry.Time.Format("2006-01-02 15:04:05")
			switch {
			case entry.Event != nil:
				ev := entry.Event
				if ev.From == "" {
					fmt.Printf("%s  [status]  created as %s by %s\n", ts, ev.To, ev.ActorID)
				} else {
					fmt.Printf("%s  [status]  %s -> %s by %s\n", ts, ev.From, ev.To, ev.ActorID)
				}
				if ev.Reason != "" {
					fmt.Printf("%s            reason: %s\n", strings.Repeat(" ", len(ts)), ev.Reason)
				}
			case entry.Message != nil:
				fmt.Printf("%s  [message] %s: %s\n", ts, entry.Message.AuthorID, entry.Message.Body)
			}
		}
		return nil
	},
}

// audit command
var auditCmd = &cobra.Command{
	Use:   "audit PROJECT_ID",
	Short: "View the full audit snapshot of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Audit")
		if err != nil {
			return err
		}
		defer a.Close()

		audit, err := a.Service().AuditSnapshot(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		p := audit.Project
		fmt.Printf("Project %s  %-13s  %s\n", p.ID, p.Status, p.Title)
		for _, j := range audit.PrintJobs {
			fmt.Printf("  job %s  %s\n", j.ID, j.Status)
		}
		fmt.Printf("\nTimeline (%d entries):\n", len(audit.Timeline))
		for _, entry := range audit.Timeline {
			ts := entry.Time.Format("2006-01-02 15:04:05")
			if entry.Event != nil {
				fmt.Printf("  %s  %s -> %s\n", ts, entry.Event.From, entry.Event.To)
			} else if entry.Message != nil {
				fmt.Printf("  %s  %s: %s\n", ts, entry.Message.AuthorID, entry.Message.Body)
			}
		}
		return nil
	},
}

// catalog commands
var printerCmd = &cobra.Command{
	Use:   "printer",
	Short: "Manage printers",
}

var printerAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Register a printer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		printerModel, _ := cmd.Flags().GetString("model")
		location, _ := cmd.Flags().GetString("location")

		a, err := newApp("AddPrinter")
		if err != nil {
			return err
		}
		defer a.Close()

		p := &model.Printer{Name: args[0], Model: printerModel, Location: location, Active: true}
		if err := a.Service().AddPrinter(cmd.Context(), actorRef(cmd), p); err != nil {
			return err
		}

		fmt.Printf("Added printer %s (%s)\n", p.ID, p.Name)
		return nil
	},
}

var printerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List printers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListPrinters")
		if err != nil {
			return err
		}
		defer a.Close()

		printers, err := a.Service().Printers(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range printers {
			active := "inactive"
			if p.Active {
				active = "active"
			}
			fmt.Printf("%s  %-20s  %-12s  %s  %s\n", p.ID, p.Name, p.Model, p.Location, active)
		}
		return nil
	},
}

var materialCmd = &cobra.Command{
	Use:   "material",
	Short: "Manage materials",
}

var materialAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Register a material",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, _ := cmd.Flags().GetString("desc")

		a, err := newApp("AddMaterial")
		if err != nil {
			return err
		}
		defer a.Close()

		m := &model.Material{Name: args[0], Description: desc}
		if err := a.Service().AddMaterial(cmd.Context(), actorRef(cmd), m); err != nil {
			return err
		}

		fmt.Printf("Added material %s (%s)\n", m.ID, m.Name)
		return nil
	},
}

var materialListCmd = &cobra.Command{
	Use:   "list",
	Short: "List materials",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListMaterials")
		if err != nil {
			return err
		}
		defer a.Close()

		materials, err := a.Service().Materials(cmd.Context())
		if err != nil {
			return err
		}
		for _, m := range materials {
			fmt.Printf("%s  %-12s  %s\n", m.ID, m.Name, m.Description)
		}
		return nil
	},
}

var colorCmd = &cobra.Command{
	Use:   "color",
	Short: "Manage colors",
}

var colorAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Register a color",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hex, _ := cmd.Flags().GetString("hex")

		a, err := newApp("AddColor")
		if err != nil {
			return err
		}
		defer a.Close()

		c := &model.Color{Name: args[0], HexCode: hex}
		if err := a.Service().AddColor(cmd.Context(), actorRef(cmd), c); err != nil {
			return err
		}

		fmt.Printf("Added color %s (%s)\n", c.ID, c.Name)
		return nil
	},
}

var colorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List colors",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListColors")
		if err != nil {
			return err
		}
		defer a.Close()

		colors, err := a.Service().Colors(cmd.Context())
		if err != nil {
			return err
		}
		for _, c := range colors {
			fmt.Printf("%s  %-12s  %s\n", c.ID, c.Name, c.HexCode)
		}
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Serve")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := unlockIfEncrypted(a); err != nil {
			return err
		}
		if err := a.ValidateSetup(cmd.Context()); err != nil {
			return fmt.Errorf("validating blob store: %w", err)
		}

		addr := a.Config().API.ListenAddr
		if addr == "" {
			addr = ":8080"
		}

		router := api.SetupRouter(a.Service())
		fmt.Printf("Listening on %s\n", addr)
		return router.Run(addr)
	},
}

func init() {
	rootCmd.PersistentFlags().String("actor", "", "Acting user reference (default $NEOFAB_ACTOR, then $USER)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)
	configKeysCmd.AddCommand(configKeysInitCmd)

	// project subcommands
	projectCmd.AddCommand(projectSubmitCmd)
	projectSubmitCmd.Flags().String("desc", "", "Project description")
	projectCmd.AddCommand(projectListCmd)
	projectListCmd.Flags().String("owner", "", "Filter by owner")
	projectListCmd.Flags().String("status", "", "Filter by status")
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectStatusCmd)
	projectStatusCmd.Flags().String("reason", "", "Reason for the transition")

	// job subcommands
	jobCmd.AddCommand(jobCreateCmd)
	jobCreateCmd.Flags().String("printer", "", "Printer ID")
	jobCreateCmd.Flags().String("material", "", "Material ID")
	jobCreateCmd.Flags().String("color", "", "Color ID")
	jobCreateCmd.Flags().IntP("priority", "p", 0, "Job priority")
	jobCreateCmd.Flags().String("deadline", "", "Deadline (YYYY-MM-DD)")
	jobCmd.AddCommand(jobListCmd)
	jobCmd.AddCommand(jobStatusCmd)
	jobStatusCmd.Flags().String("reason", "", "Reason for the transition")

	// attachment commands
	attachCmd.Flags().StringP("kind", "k", "model", "Attachment kind (model, gcode, image, other)")
	attachCmd.Flags().String("note", "", "Note for the operators")
	attachCmd.Flags().IntP("quantity", "q", 1, "Copies to print")
	attachCmd.Flags().Bool("job", false, "Attach to a print job instead of a project")
	attachmentCmd.AddCommand(attachmentGetCmd)
	attachmentGetCmd.Flags().StringP("out", "o", "", "Output file (default stdout)")

	// catalog subcommands
	printerCmd.AddCommand(printerAddCmd)
	printerAddCmd.Flags().String("model", "", "Printer model")
	printerAddCmd.Flags().String("location", "", "Physical location")
	printerCmd.AddCommand(printerListCmd)
	materialCmd.AddCommand(materialAddCmd)
	materialAddCmd.Flags().String("desc", "", "Material description")
	materialCmd.AddCommand(materialListCmd)
	colorCmd.AddCommand(colorAddCmd)
	colorAddCmd.Flags().String("hex", "", "Hex code, e.g. #FF0000")
	colorCmd.AddCommand(colorListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(attachmentCmd)
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(printerCmd)
	rootCmd.AddCommand(materialCmd)
	rootCmd.AddCommand(colorCmd)
	rootCmd.AddCommand(serveCmd)
}
