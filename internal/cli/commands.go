package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/rainmeas/registry"
	"github.com/rainmeas/registry/fetch"
)

func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every package in the registry index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range c.reg.ListPackageNames(cmd.Context()) {
				fmt.Fprintln(c.out, name)
			}
			return nil
		},
	}
}

func (c *CLI) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show a package's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			errBuilder := oops.Code("package_info_error").In("cli").With("name", name)

			info, err := c.reg.FetchPackage(cmd.Context(), name)
			if registry.IsNotFound(err) {
				return errBuilder.Code("package_not_found").Errorf("package %q not found", name)
			} else if err != nil {
				return errBuilder.Wrapf(err, "failed to fetch package")
			}

			latest, ok := c.reg.LatestVersion(cmd.Context(), name, info)
			if !ok {
				latest = registry.UnknownVersion
			}

			fmt.Fprintf(c.out, "name:        %s\n", name)
			fmt.Fprintf(c.out, "description: %s\n", info.Description)
			fmt.Fprintf(c.out, "author:      %s\n", info.Author)
			fmt.Fprintf(c.out, "latest:      %s\n", latest)
			fmt.Fprintf(c.out, "versions:    %s\n", strings.Join(info.Versions.Labels(), ", "))
			if ok {
				fmt.Fprintf(c.out, "purl:        %s\n", c.reg.URLs().PURL(name, latest))
			}
			return nil
		},
	}
}

func (c *CLI) searchCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find packages whose name, description or author contains query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := c.reg.Search(cmd.Context(), args[0])

			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return oops.In("cli").Wrapf(enc.Encode(result), "failed to encode results")
			}

			names := make([]string, 0, len(result))
			for name := range result {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				m := result[name]
				fmt.Fprintf(c.out, "%s\t%s\t%s\n", name, m.Latest, strings.Join(m.Versions, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func (c *CLI) latestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "latest <name>",
		Short: "Print a package's latest version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			latest, ok := c.reg.LatestVersion(cmd.Context(), args[0], nil)
			if !ok {
				return oops.Code("no_latest_version").In("cli").With("name", args[0]).
					Errorf("no version found for %q", args[0])
			}
			fmt.Fprintln(c.out, latest)
			return nil
		},
	}
}

func (c *CLI) versionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "versions <name>",
		Short: "List a package's versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, v := range c.reg.AvailableVersions(cmd.Context(), args[0], nil) {
				fmt.Fprintln(c.out, v)
			}
			return nil
		},
	}
}

func (c *CLI) urlCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "url <name> <version>",
		Short: "Print the download URL of a release",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, ok := c.reg.DownloadURL(cmd.Context(), args[0], args[1])
			if !ok {
				return oops.Code("no_download_url").In("cli").With("name", args[0], "version", args[1]).
					Errorf("no download URL for %s@%s", args[0], args[1])
			}
			fmt.Fprintln(c.out, url)
			return nil
		},
	}
}

func (c *CLI) downloadCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "download <name> [version]",
		Short: "Download a release archive (latest when version is omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, version := args[0], ""
			if len(args) == 2 {
				version = args[1]
			}
			errBuilder := oops.Code("download_error").In("cli").With("name", name, "version", version)

			info, err := fetch.NewResolver(c.reg).Resolve(cmd.Context(), name, version)
			if err != nil {
				return errBuilder.Wrapf(err, "failed to resolve release")
			}

			c.logger.Info("downloading", "name", info.Name, "version", info.Version, "url", info.URL)
			path, err := fetch.Download(cmd.Context(), c.newFetcher(), info, dir)
			if err != nil {
				return errBuilder.With("url", info.URL).Wrapf(err, "failed to download")
			}
			fmt.Fprintln(c.out, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", ".", "directory to write the archive to")
	return cmd
}
