package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/huangzesen/heliospice/internal/config"
	"github.com/huangzesen/heliospice/internal/ephem"
	"github.com/huangzesen/heliospice/internal/kernel"
	"github.com/huangzesen/heliospice/internal/logging"
	"github.com/huangzesen/heliospice/internal/manifest"
	"github.com/huangzesen/heliospice/internal/mission"
	"github.com/huangzesen/heliospice/internal/server"
	"github.com/huangzesen/heliospice/internal/spice"
	"github.com/huangzesen/heliospice/internal/telemetry"
	"github.com/huangzesen/heliospice/internal/ui"
)

// deps bundles the wired-up engine for a command run.
type deps struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	metrics *telemetry.Metrics
	km      *kernel.Manager
	svc     *ephem.Service
}

func buildDeps() (*deps, error) {
	cfg := config.Load()
	log := logging.New(logging.ParseLevel(cfg.LogLevel))
	metrics := telemetry.New()

	km, err := kernel.New(cfg, spice.NewToolkit(), log, metrics)
	if err != nil {
		return nil, err
	}

	return &deps{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		km:      km,
		svc:     ephem.NewService(km, log),
	}, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP ephemeris server on stdio",
		Long: `Runs the MCP server over stdio. Any MCP-compatible client can
connect and call get_spacecraft_ephemeris, compute_distance,
transform_coordinates, list_spice_missions, list_coordinate_frames,
and manage_kernels. Logs go to stderr; stdout carries the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			if addr := d.cfg.MetricsAddr; addr != "" {
				go func() {
					d.log.Infof("metrics listening on %s", addr)
					if err := http.ListenAndServe(addr, d.metrics.Handler()); err != nil {
						d.log.Errorf("metrics server: %v", err)
					}
				}()
			}

			d.log.Infof("heliospice MCP server %s starting on stdio", cmd.Root().Version)
			srv := server.New(d.svc, d.km, d.log, os.Stdin, os.Stdout)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().String("metrics-addr", "", "expose prometheus metrics on this address (e.g. :9188)")
	cobra.CheckErr(viper.BindPFlag("metrics_addr", cmd.Flags().Lookup("metrics-addr")))
	return cmd
}

func newQueryCmd() *cobra.Command {
	var (
		observer string
		at       string
		end      string
		step     string
		frame    string
		velocity bool
	)

	cmd := &cobra.Command{
		Use:   "query TARGET",
		Short: "Query a body's position, state, or trajectory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			target := args[0]
			if end != "" {
				traj, err := d.svc.Trajectory(ctx, ephem.TrajectoryQuery{
					Target:          target,
					Observer:        observer,
					Start:           at,
					End:             end,
					Step:            step,
					Frame:           frame,
					IncludeVelocity: velocity,
				})
				if err != nil {
					return err
				}
				return printJSON(traj)
			}

			if velocity {
				st, err := d.svc.State(ctx, target, observer, at, frame)
				if err != nil {
					return err
				}
				return printJSON(st)
			}
			pos, err := d.svc.Position(ctx, target, observer, at, frame)
			if err != nil {
				return err
			}
			return printJSON(pos)
		},
	}

	cmd.Flags().StringVar(&observer, "observer", "SUN", "observer body")
	cmd.Flags().StringVar(&at, "time", "2024-01-01T00:00:00", "UTC time (trajectory start when --end is set)")
	cmd.Flags().StringVar(&end, "end", "", "trajectory end time (enables timeseries mode)")
	cmd.Flags().StringVar(&step, "step", "1h", "trajectory step (1m, 1h, 6h, 1d, ...)")
	cmd.Flags().StringVar(&frame, "frame", "ECLIPJ2000", "coordinate frame")
	cmd.Flags().BoolVar(&velocity, "velocity", false, "include velocity and speed")
	return cmd
}

func newDistanceCmd() *cobra.Command {
	var (
		start string
		end   string
		step  string
	)

	cmd := &cobra.Command{
		Use:   "distance TARGET1 TARGET2",
		Short: "Distance between two bodies over a time range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			traj, err := d.svc.Trajectory(ctx, ephem.TrajectoryQuery{
				Target:   args[0],
				Observer: args[1],
				Start:    start,
				End:      end,
				Step:     step,
			})
			if err != nil {
				return err
			}

			minIdx := 0
			minKm, maxKm, sumKm := traj.RKm[0], traj.RKm[0], 0.0
			for i, r := range traj.RKm {
				if r < minKm {
					minKm, minIdx = r, i
				}
				if r > maxKm {
					maxKm = r
				}
				sumKm += r
			}

			return printJSON(map[string]any{
				"target1":    traj.Target,
				"target2":    traj.Observer,
				"time_start": traj.Times[0],
				"time_end":   traj.Times[traj.Points-1],
				"n_points":   traj.Points,
				"distance_km": map[string]float64{
					"min":  minKm,
					"max":  maxKm,
					"mean": sumKm / float64(traj.Points),
				},
				"closest_approach": map[string]any{
					"time":        traj.Times[minIdx],
					"distance_km": minKm,
					"distance_au": traj.RAU[minIdx],
				},
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start time (ISO 8601)")
	cmd.Flags().StringVar(&end, "end", "", "end time (ISO 8601)")
	cmd.Flags().StringVar(&step, "step", "1h", "time step")
	cobra.CheckErr(cmd.MarkFlagRequired("start"))
	cobra.CheckErr(cmd.MarkFlagRequired("end"))
	return cmd
}

func newMissionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "missions",
		Short: "List supported spacecraft missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MISSION\tNAIF ID\tKERNELS\tSEGMENTED")
			for _, info := range mission.ListSupported() {
				kernels := "-"
				if info.HasKernels {
					kernels = "yes"
				}
				segmented := ""
				if info.Segmented {
					segmented = "yes"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", info.Key, info.NAIFID, kernels, segmented)
			}
			return w.Flush()
		},
	}
}

func newFramesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frames",
		Short: "List supported coordinate frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, info := range ephem.DescribeFrames() {
				fmt.Printf("%-12s %s\n", info.Frame, info.FullName)
				fmt.Printf("             %s\n\n", info.UseWhen)
			}
			return nil
		},
	}
}

func newCacheCmd() *cobra.Command {
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the kernel cache",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show cached kernels grouped by mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			info, err := d.km.CacheInfo()
			if err != nil {
				return err
			}
			return printJSON(info)
		},
	}

	download := &cobra.Command{
		Use:   "download MISSION",
		Short: "Download and load kernels for a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			_, key, err := mission.Resolve(args[0])
			if err != nil {
				return err
			}
			if err := d.km.EnsureMission(ctx, key); err != nil {
				return err
			}
			fmt.Printf("Kernels downloaded and loaded for %s\n", key)
			return nil
		},
	}

	var deleteFiles []string
	del := &cobra.Command{
		Use:   "delete [MISSION]",
		Short: "Delete cached kernels for a mission, or specific files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}

			if len(deleteFiles) > 0 {
				return printJSON(d.km.DeleteFiles(deleteFiles))
			}
			if len(args) == 0 {
				return fmt.Errorf("specify a mission (or GENERIC) or use --files")
			}
			key := mission.Normalize(args[0])
			if key != "GENERIC" {
				if _, key, err = mission.Resolve(args[0]); err != nil {
					return err
				}
			}
			result, err := d.km.DeleteMission(key)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	del.Flags().StringSliceVar(&deleteFiles, "files", nil, "specific kernel filenames to delete")

	var purgeYes bool
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete ALL cached kernels and unload everything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !purgeYes {
				return fmt.Errorf("refusing to purge without --yes")
			}
			d, err := buildDeps()
			if err != nil {
				return err
			}
			result, err := d.km.Purge()
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	purge.Flags().BoolVar(&purgeYes, "yes", false, "confirm the purge")

	checkRemote := &cobra.Command{
		Use:   "check-remote MISSION",
		Short: "Check the remote archive for .bsp files not in the configured set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			_, key, err := mission.Resolve(args[0])
			if err != nil {
				return err
			}
			report, err := d.km.CheckRemote(ctx, key)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	cache.AddCommand(status, download, del, purge, checkRemote)
	return cache
}

func newManifestCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "manifest MISSION|all",
		Short: "Rebuild a segment manifest from the remote archive",
		Long: `Scans a segmented mission's archive directory, downloads each SPK,
reads its coverage window, and writes the manifest JSON. Requires a
binary built with the cspice tag. Downloads every SPK in the archive,
so expect a long run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			keys := manifest.BuildableMissions()
			if args[0] != "all" {
				_, key, err := mission.Resolve(args[0])
				if err != nil {
					return err
				}
				keys = []string{key}
			}

			for _, key := range keys {
				report, err := d.km.BuildManifest(ctx, key, outDir)
				if err != nil {
					return err
				}
				if err := printJSON(report); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "internal/manifest/manifests", "output directory for manifest JSON")
	return cmd
}

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse the kernel cache interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("stdout is not a terminal; use 'heliospice cache status' instead")
			}
			d, err := buildDeps()
			if err != nil {
				return err
			}
			return ui.Run(d.km)
		},
	}
}
