package cli

import (
	"github.com/kvesta/depcheck/config"
	"github.com/kvesta/depcheck/internal/task"
	"github.com/spf13/cobra"
)

type stringFlag struct {
	name  string
	usage string
	field func(u *task.Update) **string
}

// updateFlags configure the CVE database and its download.
var updateFlags = []stringFlag{
	{"data", "directory holding the CVE database", func(u *task.Update) **string { return &u.DataDirectory }},
	{"proxyserver", "proxy server used to download the NVD feeds", func(u *task.Update) **string { return &u.ProxyServer }},
	{"proxyport", "proxy server port", func(u *task.Update) **string { return &u.ProxyPort }},
	{"proxyUser", "proxy server user", func(u *task.Update) **string { return &u.ProxyUsername }},
	{"proxyPass", "proxy server password", func(u *task.Update) **string { return &u.ProxyPassword }},
	{"connectionTimeout", "connection timeout in milliseconds", func(u *task.Update) **string { return &u.ConnectionTimeout }},
	{"dbDriverName", "database driver, sqlite3 or postgres", func(u *task.Update) **string { return &u.DatabaseDriverName }},
	{"connectionString", "database connection string", func(u *task.Update) **string { return &u.ConnectionString }},
	{"dbUser", "database user", func(u *task.Update) **string { return &u.DatabaseUser }},
	{"dbPassword", "database password", func(u *task.Update) **string { return &u.DatabasePassword }},
	{"cveUrlModified", "URL of the modified NVD CVE feed", func(u *task.Update) **string { return &u.CveURLModified }},
	{"cveUrlBase", "URL pattern of the yearly NVD CVE feeds", func(u *task.Update) **string { return &u.CveURLBase }},
}

var (
	updateValues = map[string]*string{}

	cveValidForHours int
	cveStartYear     int
)

func addUpdateFlags(cmd *cobra.Command) {
	for _, f := range updateFlags {
		v, ok := updateValues[f.name]
		if !ok {
			v = new(string)
			updateValues[f.name] = v
		}
		cmd.Flags().StringVar(v, f.name, "", f.usage)
	}

	cmd.Flags().IntVar(&cveValidForHours, "cveValidForHours", 4, "hours before the NVD data is checked for updates again")
	cmd.Flags().IntVar(&cveStartYear, "cveStartYear", 2002, "first year of NVD data to download")
}

func applyUpdateFlags(cmd *cobra.Command, u *task.Update) {
	for _, f := range updateFlags {
		if cmd.Flags().Changed(f.name) {
			v := *updateValues[f.name]
			*f.field(u) = &v
		}
	}

	if cmd.Flags().Changed("cveValidForHours") {
		v := cveValidForHours
		u.CveValidForHours = &v
	}
	if cmd.Flags().Changed("cveStartYear") {
		v := cveStartYear
		u.CveStartYear = &v
	}
	applyFailOnError(cmd, &u.FailOnError)
}

func update() {
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update the local copy of the NVD",
		Long: `Examples:
  # Download the NVD data into the default data directory
  $ depcheck update

  # Update a shared postgres database
  $ depcheck update --dbDriverName postgres --connectionString "host=db dbname=nvd"`,
		Args: NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bf, err := loadBuildFile()
			if err != nil {
				return err
			}

			u := bf.Update
			if u == nil {
				u = task.NewUpdate(bf.Project)
			}
			applyUpdateFlags(cmd, u)

			ctx, cancel := signalContext()
			defer cancel()

			if err := u.Execute(ctx); err != nil {
				return err
			}
			bf.Project.Log("dependency-check-update", config.Green("Updating vulnerability database finished"), task.LevelInfo)
			return nil
		},
	}

	addUpdateFlags(updateCmd)
	rootCmd.AddCommand(updateCmd)
}

func purge() {
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete the local copy of the NVD",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bf, err := loadBuildFile()
			if err != nil {
				return err
			}

			p := bf.Purge
			if p == nil {
				p = task.NewPurge(bf.Project)
			}
			if cmd.Flags().Changed("data") {
				v := *updateValues["data"]
				p.DataDirectory = &v
			}
			applyFailOnError(cmd, &p.FailOnError)

			ctx, cancel := signalContext()
			defer cancel()

			return p.Execute(ctx)
		},
	}

	v, ok := updateValues["data"]
	if !ok {
		v = new(string)
		updateValues["data"] = v
	}
	purgeCmd.Flags().StringVar(v, "data", "", "directory holding the CVE database")

	rootCmd.AddCommand(purgeCmd)
}
