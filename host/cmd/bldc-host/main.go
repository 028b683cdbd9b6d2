// bldc-host is an interactive console for a BLDC controller board. It opens
// the serial link, fetches the board's data dictionary and drives the motor
// command set from stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"bldc/config"
	"bldc/host/mcu"
)

var (
	device  = flag.String("device", "", "serial device path (overrides profile)")
	baud    = flag.Int("baud", 0, "baud rate (overrides profile, ignored for USB CDC)")
	profile = flag.String("profile", "", "motor profile JSON file")
)

func main() {
	flag.Parse()

	cfg, err := loadProfile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	conn := mcu.NewMCU()
	fmt.Printf("Connecting to %s...\n", cfg.Device)
	if err := conn.Connect(cfg.Device); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := conn.RetrieveDictionary(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}
	dict := conn.Dictionary()
	fmt.Printf("Connected: %s (%d commands, %d responses)\n",
		dict.Version, len(dict.Commands), len(dict.Responses))

	fmt.Println("Enter commands ('help' for the list, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		if args[0] == "quit" || args[0] == "exit" || args[0] == "q" {
			return
		}
		if err := runCommand(conn, cfg, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func loadProfile() (*config.Profile, error) {
	cfg := config.Default()
	if *profile != "" {
		loaded, err := config.LoadProfileFile(*profile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if *device != "" {
		cfg.Device = *device
	}
	if *baud != 0 {
		cfg.Baud = *baud
	}
	return cfg, nil
}

func runCommand(conn *mcu.MCU, cfg *config.Profile, args []string) error {
	switch args[0] {
	case "help", "?":
		printHelp()
		return nil

	case "start":
		return conn.StartMotor()

	case "stop":
		return conn.StopMotor()

	case "duty":
		if len(args) != 2 {
			return fmt.Errorf("usage: duty <percent>")
		}
		percent, err := strconv.ParseFloat(args[1], 64)
		if err != nil || percent < 0 || percent > 100 {
			return fmt.Errorf("duty must be 0-100")
		}
		return conn.SetDuty(uint16(percent / 100.0 * 65535.0))

	case "dir":
		if len(args) != 2 {
			return fmt.Errorf("usage: dir <forward|reverse>")
		}
		switch args[1] {
		case "forward", "f":
			return conn.SetDirection(false)
		case "reverse", "r":
			return conn.SetDirection(true)
		}
		return fmt.Errorf("direction must be forward or reverse")

	case "lock":
		if len(args) != 2 {
			return fmt.Errorf("usage: lock <milliseconds>")
		}
		ms, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid hold time: %v", err)
		}
		return conn.LockMotor(uint32(ms))

	case "state":
		state, err := conn.QueryMotorState()
		if err != nil {
			return err
		}
		fmt.Println(state)
		return nil

	case "config":
		if len(args) == 2 {
			loaded, err := config.LoadProfileFile(args[1])
			if err != nil {
				return err
			}
			cfg.Motor = loaded.Motor
		}
		if err := conn.ConfigureMotor(&cfg.Motor); err != nil {
			return err
		}
		fmt.Printf("Sent profile: hall_table=%d pwm_freq=%d startup=%.1f%% watchdog=%dms lockon=%d\n",
			cfg.Motor.HallTable, cfg.Motor.PWMFrequency, cfg.Motor.StartupDutyPercent,
			cfg.Motor.WatchdogMillis, cfg.Motor.LockOnCount)
		return nil

	case "dict":
		printDictionary(conn.Dictionary())
		return nil

	case "raw":
		raw := conn.DictionaryRaw()
		fmt.Printf("Raw dictionary (%d bytes):\n%s\n", len(raw), string(raw))
		return nil

	case "uptime":
		return conn.SendCommand("get_uptime", nil)
	}

	return fmt.Errorf("unknown command %q ('help' for the list)", args[0])
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  start           - start the motor")
	fmt.Println("  stop            - stop the motor")
	fmt.Println("  duty <percent>  - set commanded duty cycle, 0-100")
	fmt.Println("  dir <f|r>       - set direction for the next start")
	fmt.Println("  lock <ms>       - lock out actuation for a hold time")
	fmt.Println("  state           - query motor state")
	fmt.Println("  config [file]   - push the loaded (or given) motor profile")
	fmt.Println("  dict            - print dictionary summary")
	fmt.Println("  raw             - print raw dictionary JSON")
	fmt.Println("  uptime          - request controller uptime")
	fmt.Println("  quit/exit/q     - exit")
	fmt.Println()
}

func printDictionary(dict *mcu.Dictionary) {
	if dict == nil {
		fmt.Println("No dictionary loaded")
		return
	}

	fmt.Printf("Version: %s (%s)\n", dict.Version, dict.BuildVersions)
	fmt.Println("Config:")
	for k, v := range dict.Config {
		fmt.Printf("  %s = %s\n", k, v)
	}
	fmt.Printf("Commands (%d):\n", len(dict.Commands))
	for name, id := range dict.Commands {
		fmt.Printf("  [%d] %s\n", id, name)
	}
	fmt.Printf("Responses (%d):\n", len(dict.Responses))
	for name, id := range dict.Responses {
		fmt.Printf("  [%d] %s\n", id, name)
	}
	for name, values := range dict.Enumerations {
		parts := make([]string, 0, len(values))
		for v := range values {
			parts = append(parts, v)
		}
		fmt.Printf("Enumeration %s: %s\n", name, strings.Join(parts, ", "))
	}
}
