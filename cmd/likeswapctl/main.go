package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/likeswap/likeswap/internal/config"
	"github.com/likeswap/likeswap/internal/session"
	"github.com/likeswap/likeswap/internal/store"
)

func main() {
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	cfg, err := config.LoadOrDefault(session.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c := &client{
		base: "http://" + cfg.Admin.Listen,
		http: &http.Client{Timeout: 10 * time.Second},
	}

	switch args[0] {
	case "status":
		cmdStatus(c, *jsonFlag)
	case "stats":
		cmdStats(c, *jsonFlag)
	case "contacts":
		cmdContacts(c, *jsonFlag)
	case "contact":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: likeswapctl contact <platform> <user_id>")
			os.Exit(1)
		}
		cmdContact(c, args[1], args[2])
	case "exchanges":
		cmdExchanges(c, *jsonFlag)
	case "block":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: likeswapctl block <contact_id>")
			os.Exit(1)
		}
		cmdBlock(c, args[1])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: likeswapctl [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                     Check daemon health")
	fmt.Fprintln(os.Stderr, "  stats                      Contact and exchange totals")
	fmt.Fprintln(os.Stderr, "  contacts                   List contacts by reliability")
	fmt.Fprintln(os.Stderr, "  contact <platform> <id>    Show one contact")
	fmt.Fprintln(os.Stderr, "  exchanges                  List active exchanges")
	fmt.Fprintln(os.Stderr, "  block <contact_id>         Block a contact")
}

type client struct {
	base string
	http *http.Client
}

func (c *client) get(path string, out any) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return fmt.Errorf("cannot reach daemon at %s: %w", c.base, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}

func (c *client) post(path string, out any) error {
	resp, err := c.http.Post(c.base+path, "application/json", nil)
	if err != nil {
		return fmt.Errorf("cannot reach daemon at %s: %w", c.base, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func cmdStatus(c *client, asJSON bool) {
	var out map[string]string
	if err := c.get("/healthz", &out); err != nil {
		fatal(err)
	}
	if asJSON {
		printJSON(out)
		return
	}
	fmt.Printf("daemon ok (session %s)\n", out["session"])
}

func cmdStats(c *client, asJSON bool) {
	var out struct {
		ContactsByStatus  map[string]int `json:"contacts_by_status"`
		ExchangesByStatus map[string]int `json:"exchanges_by_status"`
		SendsToday        int            `json:"sends_today"`
		DailySendCap      int            `json:"daily_send_cap"`
	}
	if err := c.get("/v1/stats", &out); err != nil {
		fatal(err)
	}
	if asJSON {
		printJSON(out)
		return
	}
	fmt.Println("contacts:")
	for status, n := range out.ContactsByStatus {
		fmt.Printf("  %-16s %d\n", status, n)
	}
	fmt.Println("exchanges:")
	for status, n := range out.ExchangesByStatus {
		fmt.Printf("  %-16s %d\n", status, n)
	}
	fmt.Printf("sends today: %d/%d\n", out.SendsToday, out.DailySendCap)
}

func cmdContacts(c *client, asJSON bool) {
	var contacts []store.Contact
	if err := c.get("/v1/contacts", &contacts); err != nil {
		fatal(err)
	}
	if asJSON {
		printJSON(contacts)
		return
	}
	fmt.Printf("%-6s %-16s %-14s %-6s %s\n", "ID", "USER", "STATUS", "SCORE", "EXCHANGES")
	for _, ct := range contacts {
		name := ct.Username
		if name == "" {
			name = ct.UserID
		}
		fmt.Printf("%-6d %-16s %-14s %-6d %d/%d\n",
			ct.ID, name, ct.Status, ct.ReliabilityScore, ct.SuccessfulExchanges, ct.TotalExchanges)
	}
}

func cmdContact(c *client, platform, userID string) {
	var contact store.Contact
	if err := c.get("/v1/contacts/"+platform+"/"+userID, &contact); err != nil {
		fatal(err)
	}
	printJSON(contact)
}

func cmdExchanges(c *client, asJSON bool) {
	var exchanges []store.Exchange
	if err := c.get("/v1/exchanges/active", &exchanges); err != nil {
		fatal(err)
	}
	if asJSON {
		printJSON(exchanges)
		return
	}
	fmt.Printf("%-38s %-8s %-14s %s\n", "UUID", "CONTACT", "STATUS", "TIMEOUT")
	for _, e := range exchanges {
		timeout := "-"
		if e.TimeoutAt > 0 {
			timeout = time.UnixMilli(e.TimeoutAt).Format(time.RFC3339)
		}
		fmt.Printf("%-38s %-8d %-14s %s\n", e.UUID, e.ContactID, e.Status, timeout)
	}
}

func cmdBlock(c *client, id string) {
	var out map[string]string
	if err := c.post("/v1/contacts/"+id+"/block", &out); err != nil {
		fatal(err)
	}
	fmt.Println("contact blocked")
}
