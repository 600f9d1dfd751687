package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strconv"
	"strings"

	"vester/config"
	"vester/core/events"
	"vester/core/state"
	"vester/crypto"
	"vester/journal"
	"vester/native/grant"
	"vester/observability"
	"vester/observability/logging"
	"vester/storage"
)

const usage = `vester-cli <command> [flags]

Grant lifecycle (admin):
  init              install the initial admin account
  mint              create a grant
  replace           replace a grant's terms under a new id
  cancel            cancel a grant
  import            mint a batch of grants from a YAML file
  nominate          nominate a new admin
  accept-admin      accept a pending admin nomination
  withdraw          move custody tokens to the admin

Holder operations:
  redeem            redeem one grant
  redeem-multiple   redeem a list of grants atomically
  redeem-all        redeem everything available across owned grants
  redeem-deposit    redeem with a token deposit
  transfer          transfer grant ownership
  approve           approve a spender for one grant
  supply            supply tokens into custody

Local ledger utilities:
  grant             show a grant record
  grants            list grants held by an account
  custody           show the custody balance of an asset
  admin             show the admin and pending nominee
  faucet            mint test tokens to an account
  approve-token     set a token allowance for the custody account
  journal           replay the event journal
  new-account       generate a key pair and address
`

type cli struct {
	cfg     *config.Config
	log     *slog.Logger
	db      storage.Database
	journal *journal.Journal
	engine  *grant.Engine
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]

	if command == "new-account" {
		if err := runNewAccount(args); err != nil {
			fatal(err)
		}
		return
	}

	cfgPath := os.Getenv("VESTER_CONFIG")
	if cfgPath == "" {
		cfgPath = "vester.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal(err)
	}
	logger := logging.Setup(cfg.Service, cfg.Environment)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fatal(err)
	}
	db, err := storage.NewLevelDB(cfg.StatePath())
	if err != nil {
		fatal(fmt.Errorf("open state database: %w", err))
	}
	defer db.Close()

	jnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		fatal(fmt.Errorf("open journal: %w", err))
	}
	defer jnl.Close()

	manager := state.NewManager(db)
	engine := grant.NewEngine()
	engine.SetState(manager)
	engine.SetEmitter(events.MultiEmitter{jnl, observability.Metrics()})

	app := &cli{cfg: cfg, log: logger, db: db, journal: jnl, engine: engine}
	if err := app.run(command, args, manager); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func (c *cli) run(command string, args []string, manager *state.Manager) error {
	switch command {
	case "init":
		return c.runInit(args)
	case "mint":
		return c.runMint(args)
	case "replace":
		return c.runReplace(args)
	case "cancel":
		return c.runCancel(args)
	case "import":
		return c.runImport(args)
	case "nominate":
		return c.runNominate(args)
	case "accept-admin":
		return c.runAcceptAdmin(args)
	case "withdraw":
		return c.runWithdraw(args)
	case "redeem":
		return c.runRedeem(args)
	case "redeem-multiple":
		return c.runRedeemMultiple(args)
	case "redeem-all":
		return c.runRedeemAll(args)
	case "redeem-deposit":
		return c.runRedeemDeposit(args)
	case "transfer":
		return c.runTransfer(args)
	case "approve":
		return c.runApprove(args)
	case "supply":
		return c.runSupply(args)
	case "grant":
		return c.runShowGrant(args)
	case "grants":
		return c.runListGrants(args)
	case "custody":
		return c.runCustody(args)
	case "admin":
		return c.runShowAdmin(args)
	case "faucet":
		return c.runFaucet(args, manager)
	case "approve-token":
		return c.runApproveToken(args, manager)
	case "journal":
		return c.runJournal(args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func parseAddr(value, name string) ([20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, fmt.Errorf("missing --%s", name)
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return addr.Array(), nil
}

func parseAmount(value, name string) (*big.Int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("missing --%s", name)
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid --%s: %q", name, value)
	}
	return amount, nil
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

type grantView struct {
	ID             uint64 `json:"id"`
	Holder         string `json:"holder,omitempty"`
	Asset          string `json:"asset"`
	StartTime      int64  `json:"startTime"`
	CliffTime      int64  `json:"cliffTime"`
	IntervalAmount string `json:"intervalAmount"`
	TotalAmount    string `json:"totalAmount"`
	RedeemedAmount string `json:"redeemedAmount"`
	VestInterval   int64  `json:"vestInterval"`
	Cancelled      bool   `json:"cancelled"`
	Available      string `json:"available"`
}

func (c *cli) grantView(g *grant.Grant, now int64) grantView {
	view := grantView{
		ID:             g.ID,
		Asset:          crypto.MustAddress(g.Asset).String(),
		StartTime:      g.StartTime,
		CliffTime:      g.CliffTime,
		IntervalAmount: g.IntervalAmount.String(),
		TotalAmount:    g.TotalAmount.String(),
		RedeemedAmount: g.RedeemedAmount.String(),
		VestInterval:   g.VestInterval,
		Cancelled:      g.Cancelled,
		Available:      grant.AvailableForRedemption(g, now).String(),
	}
	if holder, err := c.engine.OwnerOf(g.ID); err == nil {
		view.Holder = crypto.MustAddress(holder).String()
	}
	return view
}

func runNewAccount(args []string) error {
	fs := flag.NewFlagSet("new-account", flag.ContinueOnError)
	out := fs.String("out", "", "write the private key to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	result := map[string]string{
		"address": key.PubKey().Address().String(),
	}
	if *out != "" {
		if err := crypto.SaveKey(key, *out); err != nil {
			return err
		}
		result["keyFile"] = *out
	} else {
		result["privateKey"] = hex.EncodeToString(key.Bytes())
	}
	return printJSON(result)
}

func (c *cli) runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	admin := fs.String("admin", "", "initial admin address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	addr, err := parseAddr(*admin, "admin")
	if err != nil {
		return err
	}
	if err := c.engine.InitializeAdmin(addr); err != nil {
		return err
	}
	c.log.Info("admin installed", "admin", *admin)
	return nil
}

func (c *cli) runMint(args []string) error {
	fs := flag.NewFlagSet("mint", flag.ContinueOnError)
	from := fs.String("from", "", "admin address")
	to := fs.String("to", "", "grant recipient")
	asset := fs.String("asset", "", "vested asset address")
	start := fs.Int64("start", 0, "vesting start timestamp")
	cliff := fs.Int64("cliff", 0, "cliff timestamp")
	intervalAmount := fs.String("interval-amount", "", "amount unlocked per interval")
	total := fs.String("total", "", "lifetime cap")
	redeemed := fs.String("redeemed", "0", "pre-seeded redeemed amount")
	interval := fs.Int64("interval", 0, "seconds per unlock interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	caller, err := parseAddr(*from, "from")
	if err != nil {
		return err
	}
	recipient, err := parseAddr(*to, "to")
	if err != nil {
		return err
	}
	assetAddr, err := parseAddr(*asset, "asset")
	if err != nil {
		return err
	}
	intervalAmt, err := parseAmount(*intervalAmount, "interval-amount")
	if err != nil {
		return err
	}
	totalAmt, err := parseAmount(*total, "total")
	if err != nil {
		return err
	}
	redeemedAmt, err := parseAmount(*redeemed, "redeemed")
	if err != nil {
		return err
	}
	id, err := c.engine.Mint(caller, recipient, assetAddr, *start, *cliff, intervalAmt, totalAmt, redeemedAmt, *interval)
	if err != nil {
		return err
	}
	c.log.Info("grant minted", "id", id, "grantee", *to)
	return printJSON(map[string]uint64{"id": id})
}

func (c *cli) runReplace(args []string) error {
	fs := flag.NewFlagSet("replace", flag.ContinueOnError)
	from := fs.String("from", "", "admin address")
	id := fs.Uint64("id", 0, "grant id to replace")
	asset := fs.String("asset", "", "vested asset address")
	start := fs.Int64("start", 0, "vesting start timestamp")
	cliff := fs.Int64("cliff", 0, "cliff timestamp")
	intervalAmount := fs.String("interval-amount", "", "amount unlocked per interval")
	total := fs.String("total", "", "lifetime cap")
	redeemed := fs.String("redeemed", "0", "carried-over redeemed amount")
	interval := fs.Int64("interval", 0, "seconds per unlock interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	caller, err := parseAddr(*from, "from")
	if err != nil {
		return err
	}
	assetAddr, err := parseAddr(*asset, "asset")
	if err != nil {
		return err
	}
	intervalAmt, err := parseAmount(*intervalAmount, "interval-amount")
	if err != nil {
		return err
	}
	totalAmt, err := parseAmount(*total, "total")
	if err != nil {
		return err
	}
	redeemedAmt, err := parseAmount(*redeemed, "redeemed")
	if err != nil {
		return err
	}
	newID, err := c.engine.ReplaceGrant(caller, *id, assetAddr, *start, *cliff, intervalAmt, totalAmt, redeemedAmt, *interval)
	if err != nil {
		return err
	}
	c.log.Info("grant replaced", "id", *id, "newId", newID)
	return printJSON(map[string]uint64{"id": newID})
}

func (c *cli) runCancel(args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	from := fs.String("from", "", "admin address")
	id := fs.Uint64("id", 0, "grant id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	caller, err := parseAddr(*from, "from")
	if err != nil {
		return err
	}
	if err := c.engine.CancelGrant(caller, *id); err != nil {
		return err
	}
	c.log.Info("grant cancelled", "id", *id)
	return nil
}

func (c *cli) runNominate(args []string) error {
	fs := flag.NewFlagSet("nominate", flag.ContinueOnError)
	from := fs.String("from", "", "current admin address")
	to := fs.String("to", "", "nominated admin address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	caller, err := parseAddr(*from, "from")
	if err != nil {
		return err
	}
	nominee, err := parseAddr(*to, "to")
	if err != nil {
		return err
	}
	if err := c.engine.NominateAdmin(caller, nominee); err != nil {
		return err
	}
	c.log.Info("admin nominated", "nominee", *to)
	return nil
}

func (c *cli) runAcceptAdmin(args []string) error {
	fs := flag.NewFlagSet("accept-admin", flag.ContinueOnError)
	from := fs.String("from", "", "nominated admin address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	caller, err := parseAddr(*from, "from")
	if err != nil {
		return err
	}
	if err := c.engine.AcceptAdmin(caller); err != nil {
		return err
	}
	c.log.Info("admin changed", "admin", *from)
	return nil
}

func (c *cli) runWithdraw(args []string) error {
	fs := flag.NewFlagSet("withdraw", flag.ContinueOnError)
	from := fs.String("from", "", "admin address")
	asset := fs.String("asset", "", "asset address")
	amount := fs.String("amount", "", "amount to withdraw")
	if err := fs.Parse(args); err != nil {
		return err
	}
	caller, err := parseAddr(*from, "from")
	if err != nil {
		return err
	}
	assetAddr, err := parseAddr(*asset, "asset")
	if err != nil {
		return err
	}
	amt, err := parseAmount(*amount, "amount")
	if err != nil {
		return err
	}
	if err := c.engine.Withdraw(caller, assetAddr, amt); err != nil {
		return err
	}
	c.log.Info("custody withdrawn", "asset", *asset, "amount", *amount)
	return nil
}

func (c *cli) runRedeem(args []string) error {
	fs := flag.NewFlagSet("redeem", flag.ContinueOnError)
	from := fs.String("from", "", "holder address")
	id := fs.Uint64("id", 0, "grant id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	caller, err := parseAddr(*from, "from")
	if err != nil {
		return err
	}
	paid, err := c.engine.Redeem(caller, *id)
	if err != nil {
		return err
	}
	c.log.Info("grant redeemed", "id", *id, "amount", paid.String())
	return printJSON(map[string]string{"amount": paid.String()})
}

func (c *cli) runRedeemMultiple(args []string) error {
	fs := flag.NewFlagSet("redeem-multiple", flag.ContinueOnError)
	from := fs.String("from", "", "holder address")
	idsFlag := fs.String("ids", "", "comma-separated grant ids")
	if err := fs.Parse(args); err != nil {
		return err
	}
	caller, err := parseAddr(*from, "from")
	if err != nil {
		return err
	}
	parts := strings.Split(*idsFlag, ",")
	ids := make([]uint64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid --ids entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return fmt.Errorf("missing --ids")
	}
	total, err := c.engine.RedeemMultiple(caller, ids)
	if err != nil {
		return err
	}
	c.log.Info("grants redeemed", "count", len(ids), "amount", total.String())
	return printJSON(map[string]string{"amount": total.String()})
}

func (c *cli) runRedeemAll(args []string) error {
	fs := flag.NewFlagSet("redeem-all", flag.ContinueOnError)
	from := fs.String("from", "", "holder address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	caller, err := parseAddr(*from, "from")
	if err != nil {
		return err
	}
	total, err := c.engine.RedeemAll(caller)
	if err != nil {
		return err
	}
	c.log.Info("all grants redeemed", "amount", total.String())
	return printJSON(map[string]string{"amount": total.String()})
}

func (c *cli) runRedeemDeposit(args []string) error {
	fs := flag.NewFlagSet("redeem-deposit", flag.ContinueOnError)
	from := fs.String("from", "", "holder address")
	id := fs.Uint64("id", 0, "grant id")
	depositAsset := fs.String("deposit-asset", "", "deposit asset address")
	depositAmount := fs.String("deposit-amount", "", "deposit amount")
	if err := fs.Parse(args); err != nil {
		return err
	}
	caller, err := parseAddr(*from, "from")
	if err != nil {
		return err
	}
	assetAddr, err := parseAddr(*depositAsset, "deposit-asset")
	if err != nil {
		return err
	}
	amt, err := parseAmount(*depositAmount, "deposit-amount")
	if err != nil {
		return err
	}
	paid, err := c.engine.RedeemWithTransfer(caller, *id, assetAddr, amt)
	if err != nil {
		return err
	}
	c.log.Info("grant redeemed with deposit", "id", *id, "amount", paid.String())
	return printJSON(map[string]string{"amount": paid.String()})
}

func (c *cli) runTransfer(args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ContinueOnError)
	from := fs.String("from", "", "current holder address")
	to := fs.String("to", "", "new holder address")
	id := fs.Uint64("id", 0, "grant id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fromAddr, err := parseAddr(*from, "from")
	if err != nil {
		return err
	}
	toAddr, err := parseAddr(*to, "to")
	if err != nil {
		return err
	}
	if err := c.engine.Transfer(fromAddr, *id, fromAddr, toAddr); err != nil {
		return err
	}
	c.log.Info("grant transferred", "id", *id, "to", *to)
	return nil
}

func (c *cli) runApprove(args []string) error {
	fs := flag.NewFlagSet("approve", flag.ContinueOnError)
	from := fs.String("from", "", "holder address")
	spender := fs.String("spender", "", "approved spender address")
	id := fs.Uint64("id", 0, "grant id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	caller, err := parseAddr(*from, "from")
	if err != nil {
		return err
	}
	spenderAddr, err := parseAddr(*spender, "spender")
	if err != nil {
		return err
	}
	if err := c.engine.Approve(caller, *id, spenderAddr); err != nil {
		return err
	}
	c.log.Info("grant approval set", "id", *id, "spender", *spender)
	return nil
}

func (c *cli) runSupply(args []string) error {
	fs := flag.NewFlagSet("supply", flag.ContinueOnError)
	from := fs.String("from", "", "supplier address")
	asset := fs.String("asset", "", "asset address")
	amount := fs.String("amount", "", "amount to supply")
	if err := fs.Parse(args); err != nil {
		return err
	}
	caller, err := parseAddr(*from, "from")
	if err != nil {
		return err
	}
	assetAddr, err := parseAddr(*asset, "asset")
	if err != nil {
		return err
	}
	amt, err := parseAmount(*amount, "amount")
	if err != nil {
		return err
	}
	if err := c.engine.Supply(caller, assetAddr, amt); err != nil {
		return err
	}
	c.log.Info("custody supplied", "asset", *asset, "amount", *amount)
	return nil
}

func (c *cli) runShowGrant(args []string) error {
	fs := flag.NewFlagSet("grant", flag.ContinueOnError)
	id := fs.Uint64("id", 0, "grant id")
	now := fs.Int64("now", 0, "evaluate availability at this timestamp (default: wall clock)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	g, err := c.engine.Grant(*id)
	if err != nil {
		return err
	}
	at := *now
	if at == 0 {
		at = nowUnix()
	}
	return printJSON(c.grantView(g, at))
}

func (c *cli) runListGrants(args []string) error {
	fs := flag.NewFlagSet("grants", flag.ContinueOnError)
	owner := fs.String("owner", "", "holder address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ownerAddr, err := parseAddr(*owner, "owner")
	if err != nil {
		return err
	}
	count, err := c.engine.BalanceOf(ownerAddr)
	if err != nil {
		return err
	}
	now := nowUnix()
	views := make([]grantView, 0, count)
	for i := uint64(0); i < count; i++ {
		id, err := c.engine.TokenOfOwnerByIndex(ownerAddr, i)
		if err != nil {
			return err
		}
		g, err := c.engine.Grant(id)
		if err != nil {
			return err
		}
		views = append(views, c.grantView(g, now))
	}
	return printJSON(views)
}

func (c *cli) runCustody(args []string) error {
	fs := flag.NewFlagSet("custody", flag.ContinueOnError)
	asset := fs.String("asset", "", "asset address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	assetAddr, err := parseAddr(*asset, "asset")
	if err != nil {
		return err
	}
	balance, err := c.engine.CustodyBalance(assetAddr)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"balance": balance.String()})
}

func (c *cli) runShowAdmin(args []string) error {
	admin, err := c.engine.Admin()
	if err != nil {
		return err
	}
	nominee, err := c.engine.NominatedAdmin()
	if err != nil {
		return err
	}
	out := map[string]string{"admin": ""}
	if admin != ([20]byte{}) {
		out["admin"] = crypto.MustAddress(admin).String()
	}
	if nominee != ([20]byte{}) {
		out["nominee"] = crypto.MustAddress(nominee).String()
	}
	return printJSON(out)
}

func (c *cli) runFaucet(args []string, manager *state.Manager) error {
	fs := flag.NewFlagSet("faucet", flag.ContinueOnError)
	to := fs.String("to", "", "recipient address")
	asset := fs.String("asset", "", "asset address")
	amount := fs.String("amount", "", "amount to mint")
	if err := fs.Parse(args); err != nil {
		return err
	}
	toAddr, err := parseAddr(*to, "to")
	if err != nil {
		return err
	}
	assetAddr, err := parseAddr(*asset, "asset")
	if err != nil {
		return err
	}
	amt, err := parseAmount(*amount, "amount")
	if err != nil {
		return err
	}
	if err := manager.TokenMint(toAddr, assetAddr, amt); err != nil {
		return err
	}
	c.log.Info("tokens minted", "to", *to, "amount", *amount)
	return nil
}

func (c *cli) runApproveToken(args []string, manager *state.Manager) error {
	fs := flag.NewFlagSet("approve-token", flag.ContinueOnError)
	owner := fs.String("owner", "", "token owner address")
	asset := fs.String("asset", "", "asset address")
	amount := fs.String("amount", "", "allowance amount")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ownerAddr, err := parseAddr(*owner, "owner")
	if err != nil {
		return err
	}
	assetAddr, err := parseAddr(*asset, "asset")
	if err != nil {
		return err
	}
	amt, err := parseAmount(*amount, "amount")
	if err != nil {
		return err
	}
	if err := manager.TokenApprove(ownerAddr, c.engine.Custody(), assetAddr, amt); err != nil {
		return err
	}
	c.log.Info("custody allowance set", "owner", *owner, "amount", *amount)
	return nil
}

func (c *cli) runJournal(args []string) error {
	return c.journal.Replay(func(record journal.Record) error {
		return printJSON(record)
	})
}
