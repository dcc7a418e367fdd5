package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/muurk/homesensor/internal/client"
	"github.com/muurk/homesensor/internal/config"
	"github.com/muurk/homesensor/internal/discovery"
	"github.com/muurk/homesensor/internal/ui"
)

// Global flags
var (
	registryPath string
	outputFormat string
	timeout      int
)

// Command flags
var (
	scanTimeout int
	setName     string
	setLocation string
	setFeatures uint32
	histCount   int
	histBefore  string
	assumeYes   bool
	plainPrompt bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "Paired sensor file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format (text, json)")
	rootCmd.PersistentFlags().IntVar(&timeout, "timeout", 10, "Request timeout in seconds")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(ledCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(forgetCmd)
}

func loadRegistry() (*config.Registry, error) {
	var (
		reg *config.Registry
		err error
	)
	if registryPath != "" {
		reg, err = config.LoadRegistryFrom(registryPath)
	} else {
		reg, err = config.LoadRegistry()
	}
	if err != nil {
		return nil, err
	}
	if !rootCmd.PersistentFlags().Changed("timeout") && reg.Preferences.RequestTimeout > 0 {
		timeout = reg.Preferences.RequestTimeout
	}
	return reg, nil
}

func discoverTimeout(reg *config.Registry) time.Duration {
	if reg.Preferences.DiscoverTimeout > 0 {
		return time.Duration(reg.Preferences.DiscoverTimeout) * time.Second
	}
	return discovery.DefaultScanTimeout
}

// target is a resolved sensor reference.
type target struct {
	id     string
	host   string
	port   int
	pairID string
}

func (t target) addr() string { return net.JoinHostPort(t.host, strconv.Itoa(t.port)) }

func (t target) client() *client.Client {
	c := client.New(t.host, t.port, t.pairID)
	c.SetTimeout(time.Duration(timeout) * time.Second)
	return c
}

// resolve turns a reference into an address: a registry id or nickname
// first, then host[:port] or a dotted hostname, then an mDNS lookup by
// sensor id. An empty reference means the registry default.
func resolve(ctx context.Context, reg *config.Registry, ref string) (target, error) {
	if id, s, ok := reg.Resolve(ref); ok {
		return target{id: id, host: s.Host, port: s.Port, pairID: s.PairID}, nil
	}
	if ref == "" {
		return target{}, fmt.Errorf("no sensor given and no default paired sensor; run 'sensor-cfg scan'")
	}

	if host, p, err := net.SplitHostPort(ref); err == nil {
		port, err := strconv.Atoi(p)
		if err != nil {
			return target{}, fmt.Errorf("invalid port in %q", ref)
		}
		return target{id: ref, host: host, port: port}, nil
	}
	if net.ParseIP(ref) != nil || strings.Contains(ref, ".") {
		return target{id: ref, host: ref, port: discovery.DefaultPort}, nil
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = discoverTimeout(reg)
	device, err := scanner.FindDevice(ctx, ref)
	if err != nil {
		return target{}, fmt.Errorf("unknown sensor %q: %w", ref, err)
	}
	return target{id: device.ID, host: device.IP, port: device.Port}, nil
}

func argOrEmpty(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// fail prints a failure box with hints and returns err for the exit code.
func fail(title string, err error) error {
	fmt.Fprintln(os.Stderr, ui.RenderFailure(title, err, []string{client.GetTroubleshootingHint(err)}))
	return fmt.Errorf("%s: %s", title, client.GetShortErrorMessage(err))
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for sensors on the network",
	Long: `Scan for home-sensor devices using mDNS/DNS-SD discovery.

Sensors advertise "_homesensor._tcp" with their id and firmware version.`,
	Example: `  # Scan for 5 seconds (default)
  sensor-cfg scan

  # Longer scan for busy networks
  sensor-cfg scan --scan-timeout 15`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "scan-timeout", 0, "Scan timeout in seconds (default: registry preference)")
}

func runScan(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = discoverTimeout(reg)
	if scanTimeout > 0 {
		scanner.Timeout = time.Duration(scanTimeout) * time.Second
	}

	if outputFormat != "json" {
		fmt.Printf("Scanning for sensors (timeout: %s)...\n\n", scanner.Timeout)
	}
	devices, err := scanner.ScanForDevices(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	for _, d := range devices {
		if reg.GetSensor(d.ID) != nil {
			reg.UpdateSensorLastSeen(d.ID, d.IP, d.Port)
		}
	}
	if err := reg.Save(); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(devices)
	}

	if len(devices) == 0 {
		fmt.Println(ui.RenderWarning("No sensors found", map[string]string{
			"Timeout": scanner.Timeout.String(),
			"Hint":    "Pass an address directly, e.g. sensor-cfg show 192.168.1.40",
		}))
		return nil
	}

	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		paired := "no"
		if s := reg.GetSensor(d.ID); s != nil && s.PairID != "" {
			paired = "yes"
		}
		rows = append(rows, []string{d.ID, d.Addr(), d.GetMetadata("version"), paired})
	}
	fmt.Print(ui.RenderTable([]string{"ID", "ADDRESS", "VERSION", "PAIRED"}, rows))
	return nil
}

var showCmd = &cobra.Command{
	Use:   "show [sensor]",
	Short: "Show sensor settings",
	Long: `Display a sensor's settings. For paired sensors this includes flash
usage, uptime and free memory.`,
	Example: `  sensor-cfg show
  sensor-cfg show kitchen
  sensor-cfg show 192.168.1.40:42069 --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	t, err := resolve(ctx, reg, argOrEmpty(args))
	if err != nil {
		return err
	}
	c := t.client()

	if t.pairID != "" {
		full, err := c.GetSensorFull(ctx)
		if err == nil {
			if outputFormat == "json" {
				return printJSON(full)
			}
			fmt.Println(ui.NewHeader("Sensor status", "sensor-cfg show", map[string]string{"Sensor": t.addr()}).Render())
			fmt.Print(full.FormatDetailed())
			return nil
		}
		if !client.IsNotPaired(err) {
			return fail("Failed to read sensor", err)
		}
		fmt.Fprintln(os.Stderr, "Stored pair id was rejected; showing public settings only.")
	}

	info, err := c.GetSensor(ctx)
	if err != nil {
		return fail("Failed to read sensor", err)
	}
	if outputFormat == "json" {
		return printJSON(info)
	}
	fmt.Println(ui.NewHeader("Sensor status", "sensor-cfg show", map[string]string{"Sensor": t.addr()}).Render())
	fmt.Print(info.FormatCompact())
	return nil
}

var setCmd = &cobra.Command{
	Use:   "set [sensor]",
	Short: "Change sensor settings",
	Long: `Update a paired sensor's name, location or feature bitmask. Only the
flags given are changed.`,
	Example: `  sensor-cfg set --location attic
  sensor-cfg set kitchen --name "Kitchen" --features 3`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSet,
}

func init() {
	setCmd.Flags().StringVar(&setName, "name", "", "Sensor name (max 64 characters)")
	setCmd.Flags().StringVar(&setLocation, "location", "", "Sensor location (max 64 characters)")
	setCmd.Flags().Uint32Var(&setFeatures, "features", 0, "Feature bitmask")
}

func runSet(cmd *cobra.Command, args []string) error {
	update := &client.SettingsUpdate{}
	if cmd.Flags().Changed("name") {
		update.Name = &setName
	}
	if cmd.Flags().Changed("location") {
		update.Location = &setLocation
	}
	if cmd.Flags().Changed("features") {
		update.Features = &setFeatures
	}
	if update.Empty() {
		return fmt.Errorf("nothing to change: pass --name, --location or --features")
	}

	ctx := cmd.Context()
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	t, err := resolve(ctx, reg, argOrEmpty(args))
	if err != nil {
		return err
	}

	if err := t.client().UpdateSensor(ctx, update); err != nil {
		return fail("Update failed", err)
	}
	if update.Name != nil && reg.GetSensor(t.id) != nil && reg.GetSensor(t.id).Nickname == "" {
		reg.SetSensorNickname(t.id, *update.Name)
		if err := reg.Save(); err != nil {
			return err
		}
	}
	fmt.Println(ui.RenderSuccess("Settings updated", map[string]string{"Sensor": t.addr()}))
	return nil
}

var pairCmd = &cobra.Command{
	Use:   "pair <sensor>",
	Short: "Pair with a sensor",
	Long: `Pair this machine with a sensor. You will be asked to press and release
the button on the sensor; the pairing window then stays open for 30 seconds.

On a terminal the sensor is polled until its window opens and the pair id is
requested automatically. --plain asks for Enter instead; --yes skips waiting
entirely, for scripts where the button was already pressed.

The issued pair id is stored in the registry and sent with later commands.`,
	Example: `  sensor-cfg pair 192.168.1.40
  sensor-cfg pair kitchen --plain
  sensor-cfg pair kitchen --yes   # button already pressed`,
	Args: cobra.ExactArgs(1),
	RunE: runPair,
}

func init() {
	pairCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Pair immediately without waiting for the button")
	pairCmd.Flags().BoolVar(&plainPrompt, "plain", false, "Wait for Enter instead of watching the sensor")
}

func runPair(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	t, err := resolve(ctx, reg, args[0])
	if err != nil {
		return err
	}

	c := t.client()
	c.PairID = ""

	var pairID string
	switch {
	case assumeYes || !ui.IsTerminal():
		pairID, err = c.Pair(ctx)
	case plainPrompt:
		if !ui.WaitForButton(os.Stdin, os.Stdout, t.addr()) {
			return fmt.Errorf("cancelled")
		}
		pairID, err = c.Pair(ctx)
	default:
		pairID, err = ui.RunPairing(ctx, pairFlow(c, t.addr()))
	}
	if errors.Is(err, ui.ErrPairCancelled) {
		return err
	}
	if err != nil {
		return fail("Pairing failed", err)
	}

	reg.RecordPairing(t.id, t.host, t.port, pairID)
	if err := reg.Save(); err != nil {
		return err
	}

	fmt.Println(ui.RenderSuccess("Paired", map[string]string{
		"Sensor":   t.addr(),
		"Id":       t.id,
		"Registry": reg.Path(),
	}))
	return nil
}

// pairFlow watches GET /sensor's pairing flag and pairs as soon as it is set.
func pairFlow(c *client.Client, addr string) ui.PairFlow {
	return ui.PairFlow{
		Sensor: addr,
		IsOpen: func(ctx context.Context) (bool, error) {
			info, err := c.GetSensor(ctx)
			if err != nil {
				return false, err
			}
			return info.Pairing, nil
		},
		Pair: c.Pair,
	}
}

var historyCmd = &cobra.Command{
	Use:   "history [sensor]",
	Short: "Show recorded measurements",
	Long: `Print the newest measurements recorded by a paired sensor. Readings
are taken every 15 minutes by default.`,
	Example: `  sensor-cfg history --count 8
  sensor-cfg history kitchen --before 2026-01-02T08:00:00Z`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&histCount, "count", "n", 10, "Number of measurements")
	historyCmd.Flags().StringVar(&histBefore, "before", "", "Only measurements at or before this RFC 3339 time")
}

func runHistory(cmd *cobra.Command, args []string) error {
	var before time.Time
	if histBefore != "" {
		t, err := time.Parse(time.RFC3339, histBefore)
		if err != nil {
			return fmt.Errorf("invalid --before: %w", err)
		}
		before = t
	}

	ctx := cmd.Context()
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	t, err := resolve(ctx, reg, argOrEmpty(args))
	if err != nil {
		return err
	}

	ms, err := t.client().History(ctx, before, histCount)
	if err != nil {
		return fail("Failed to read history", err)
	}
	if outputFormat == "json" {
		return printJSON(ms)
	}
	fmt.Print(client.FormatMeasurements(ms, time.Local))
	return nil
}

var ledCmd = &cobra.Command{
	Use:       "led <on|off> [sensor]",
	Short:     "Turn the sensor LED on or off",
	Example:   "  sensor-cfg led on kitchen",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"on", "off"},
	RunE:      runLED,
}

func runLED(cmd *cobra.Command, args []string) error {
	var on bool
	switch args[0] {
	case "on":
		on = true
	case "off":
	default:
		return fmt.Errorf("state must be 'on' or 'off', got %q", args[0])
	}

	ctx := cmd.Context()
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	t, err := resolve(ctx, reg, argOrEmpty(args[1:]))
	if err != nil {
		return err
	}
	if err := t.client().SetLED(ctx, on); err != nil {
		return fail("LED command failed", err)
	}
	fmt.Printf("LED %s on %s\n", args[0], t.addr())
	return nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List paired sensors",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(reg.Sensors)
		}
		if len(reg.Sensors) == 0 {
			fmt.Println("No paired sensors. Use 'sensor-cfg pair <sensor>'.")
			return nil
		}
		rows := make([][]string, 0, len(reg.Sensors))
		for id, s := range reg.Sensors {
			def := ""
			if id == reg.Default {
				def = "*"
			}
			seen := "never"
			if !s.LastSeen.IsZero() {
				seen = s.LastSeen.Local().Format("2006-01-02 15:04")
			}
			rows = append(rows, []string{def, id, s.Nickname, net.JoinHostPort(s.Host, strconv.Itoa(s.Port)), seen})
		}
		fmt.Print(ui.RenderTable([]string{"", "ID", "NICKNAME", "ADDRESS", "LAST SEEN"}, rows))
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <sensor>",
	Short: "Remove a paired sensor from the registry",
	Long: `Remove a sensor and its pair id from the local registry. The sensor
itself keeps the id; there is no way to revoke it remotely.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		id, _, ok := reg.Resolve(args[0])
		if !ok {
			return fmt.Errorf("no paired sensor %q", args[0])
		}
		if !assumeYes && !ui.Confirm(os.Stdin, os.Stdout, fmt.Sprintf("Forget sensor %s?", id)) {
			return nil
		}
		reg.Remove(id)
		return reg.Save()
	},
}

func init() {
	forgetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
}
