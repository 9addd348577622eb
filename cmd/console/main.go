package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/defistate/defistate-amm-go/cmd/client/config"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/patcher"
	tokenindexer "github.com/defistate/defistate-amm-go/protocols/tokenregistry/indexer"
	uniswapv2 "github.com/defistate/defistate-amm-go/protocols/uniswapv2"
	"github.com/defistate/defistate-amm-go/protocols/uniswapv2/calculator"
	"github.com/defistate/defistate-amm-go/protocols/uniswapv2/indexer"
	"github.com/defistate/defistate-amm-go/streams/jsonrpc/client"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// --- VISUAL CONSTANTS ---
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[37m"
)

// SafeState is a thread-safe container for the latest streamed state.
type SafeState struct {
	mu    sync.RWMutex
	state *engine.State
}

func (s *SafeState) Update(newState *engine.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = newState
}

func (s *SafeState) Get() *engine.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func main() {
	// --- 1. SETUP LOGGING (To File) ---
	logFile, err := os.OpenFile("console.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		panic(fmt.Sprintf("Failed to open log file: %v", err))
	}
	defer logFile.Close()

	rootLogger := slog.New(slog.NewJSONHandler(logFile, nil))

	closeApp := func() {
		fmt.Println("\n" + Red + "Fatal error occurred. Check console.log for details." + Reset)
		os.Exit(1)
	}

	// --- 2. CONFIG & CONTEXT ---
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		rootLogger.Error("Failed to load configuration", "error", err)
		closeApp()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- 3. INITIALIZE CLIENT ---
	statePatcher, err := patcher.NewStatePatcher(&patcher.StatePatcherConfig{})
	if err != nil {
		rootLogger.Error("Failed to initialize State Patcher", "error", err)
		closeApp()
	}

	client, err := client.NewClient(
		ctx,
		client.Config{
			URL:          cfg.StateStreamURL,
			Logger:       rootLogger.With("component", "jsonrpc-client"),
			BufferSize:   cfg.BufferSize,
			StatePatcher: statePatcher.Patch,
		},
	)
	if err != nil {
		rootLogger.Error("Failed to initialize Client", "url", cfg.StateStreamURL, "error", err)
		closeApp()
	}

	// --- 4. START CONSOLE & STATE LOOP ---
	safeState := &SafeState{}
	c := &console{out: os.Stdout, in: bufio.NewReader(os.Stdin), state: safeState, quoteDecimals: cfg.QuoteDecimals}

	fmt.Println(Green + "Starting AMM Console..." + Reset)
	fmt.Println("Logs are being written to 'console.log'")
	go c.run(ctx)

	for {
		select {
		case n := <-client.State():
			safeState.Update(n)

		case err := <-client.Err():
			rootLogger.Error("Fatal client error", "error", err)
			closeApp()

		case <-ctx.Done():
			fmt.Println("\n" + Yellow + "Shutting down..." + Reset)
			return
		}
	}
}

// console answers menu commands from the latest streamed state.
type console struct {
	out           io.Writer
	in            *bufio.Reader
	state         *SafeState
	quoteDecimals uint8
}

func (c *console) run(ctx context.Context) {
	time.Sleep(500 * time.Millisecond)

	for {
		if ctx.Err() != nil {
			return
		}

		c.printMenu()

		fmt.Fprint(c.out, Bold+"Enter selection: "+Reset)
		input, err := c.in.ReadString('\n')
		if err != nil {
			fmt.Fprintln(c.out, "Error reading input:", err)
			return
		}

		if !c.handleCommand(strings.TrimSpace(input)) {
			fmt.Fprintln(c.out, Yellow+"Exiting..."+Reset)
			os.Exit(0)
		}

		fmt.Fprintln(c.out, "\n"+Gray+"[Press Enter to continue]"+Reset)
		c.in.ReadString('\n')
	}
}

func (c *console) printMenu() {
	fmt.Fprint(c.out, "\033[H\033[2J") // Clear screen
	fmt.Fprintln(c.out, Bold+"AMM CONSOLE"+Reset+Gray+" | v0.1.0"+Reset)
	fmt.Fprintln(c.out, Gray+"-----------------------------------"+Reset)
	fmt.Fprintf(c.out, " %s1.%s Stream Status\n", Cyan, Reset)
	fmt.Fprintf(c.out, " %s2.%s Pool Summary\n", Cyan, Reset)
	fmt.Fprintf(c.out, " %s3.%s Find Pool  %s(by Address)%s\n", Cyan, Reset, Gray, Reset)
	fmt.Fprintf(c.out, " %s4.%s Find Pools %s(by Token Address)%s\n", Cyan, Reset, Gray, Reset)
	fmt.Fprintf(c.out, " %s5.%s Watch Pool %s(Live Monitor)%s\n", Cyan, Reset, Gray, Reset)
	fmt.Fprintf(c.out, " %s6.%s Quote      %s(Exact Input)%s\n", Cyan, Reset, Gray, Reset)
	fmt.Fprintln(c.out, Gray+"-----------------------------------"+Reset)
	fmt.Fprintf(c.out, " %sq.%s Quit\n", Red, Reset)
	fmt.Fprintln(c.out, "")
}

// handleCommand runs one menu command. It returns false when the user quits.
func (c *console) handleCommand(input string) bool {
	if input == "q" {
		return false
	}

	state := c.state.Get()
	if state == nil {
		fmt.Fprintln(c.out, "\n"+Yellow+"[INFO] Waiting for first state update... (Check connection/logs)"+Reset)
		return true
	}

	switch input {
	case "1":
		c.printStatus(state)
	case "2":
		c.printPoolSummary(state)
	case "3":
		c.findPool(state)
	case "4":
		c.findPoolsByToken(state)
	case "5":
		c.watchPool()
	case "6":
		c.quote(state)
	default:
		fmt.Fprintln(c.out, Red+"Unknown command."+Reset)
	}
	return true
}

// --- COMMAND HANDLERS ---

func (c *console) printStatus(state *engine.State) {
	ts := time.Unix(0, int64(state.Timestamp)).Format("15:04:05")

	fmt.Fprintf(c.out, "\n%sSTATUS  ::%s Sequence %s#%d%s | Registry %s%s%s | Pools %s%d%s | Tokens %s%d%s | Time %s%s%s\n",
		Green, Reset,
		Bold, state.Sequence, Reset,
		Bold, state.Registry.Hex(), Reset,
		Bold, len(state.Pools), Reset,
		Bold, len(state.Tokens), Reset,
		Bold, ts, Reset,
	)
}

func (c *console) printPoolSummary(state *engine.State) {
	header(c.out, "POOL SUMMARY")

	tokens := tokenindexer.New().Index(state.Tokens)
	w := tabwriter.NewWriter(c.out, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "ID\tPOOL\tPAIR\tRESERVE0\tRESERVE1\tSHARES\t")
	fmt.Fprintln(w, "--\t----\t----\t--------\t--------\t------\t")
	for _, p := range state.Pools {
		fmt.Fprintf(w, "%d\t%s\t%s/%s\t%s\t%s\t%s\t\n",
			p.ID, p.Address.Hex(), tokens.Label(p.Token0), tokens.Label(p.Token1),
			p.Reserve0.Dec(), p.Reserve1.Dec(), p.TotalShares.Dec())
	}
	w.Flush()
}

func (c *console) findPool(state *engine.State) {
	fmt.Fprint(c.out, "\n"+Bold+"[Find Pool] Enter Pool Address: "+Reset)
	address, ok := c.readAddress()
	if !ok {
		return
	}
	c.printPool(state, address)
}

func (c *console) findPoolsByToken(state *engine.State) {
	fmt.Fprint(c.out, "\n"+Bold+"[Find Pools] Enter Token Address: "+Reset)
	token, ok := c.readAddress()
	if !ok {
		return
	}

	tokens := tokenindexer.New().Index(state.Tokens)
	header(c.out, "POOLS TRADING "+tokens.Label(token))

	found := 0
	w := tabwriter.NewWriter(c.out, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "ID\tPOOL\tCOUNTER TOKEN\t")
	for _, p := range state.Pools {
		var counter common.Address
		switch token {
		case p.Token0:
			counter = p.Token1
		case p.Token1:
			counter = p.Token0
		default:
			continue
		}
		found++
		fmt.Fprintf(w, "%d\t%s\t%s\t\n", p.ID, p.Address.Hex(), tokens.Label(counter))
	}
	w.Flush()

	if found == 0 {
		fmt.Fprintln(c.out, Yellow+"No pools found for this token."+Reset)
	}
}

func (c *console) watchPool() {
	fmt.Fprint(c.out, "\n"+Bold+"[Watch Pool] Enter Pool Address: "+Reset)
	address, ok := c.readAddress()
	if !ok {
		return
	}

	fmt.Fprintln(c.out, Green+"Starting Live Watch... (Press 'Enter' to stop)"+Reset)

	stopCh := make(chan struct{})
	go func() {
		c.in.ReadString('\n')
		close(stopCh)
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var lastSequence uint64
	first := true
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			state := c.state.Get()
			if state == nil || (!first && state.Sequence <= lastSequence) {
				continue
			}
			first = false
			lastSequence = state.Sequence

			fmt.Fprint(c.out, "\033[H\033[2J")
			fmt.Fprintf(c.out, Bold+"\n--- LIVE MONITOR (Sequence: %d) ---\n"+Reset, state.Sequence)
			fmt.Fprintln(c.out, Gray+"Press ENTER to return to menu."+Reset)

			c.printPool(state, address)
		}
	}
}

func (c *console) quote(state *engine.State) {
	fmt.Fprint(c.out, "\n"+Bold+"[Quote] Enter Pool Address: "+Reset)
	address, ok := c.readAddress()
	if !ok {
		return
	}
	pool, ok := indexer.New().Index(state.Pools).GetByAddress(address)
	if !ok {
		fmt.Fprintln(c.out, Red+"Pool not found."+Reset)
		return
	}

	fmt.Fprint(c.out, Bold+"Enter Token In Address: "+Reset)
	tokenIn, ok := c.readAddress()
	if !ok {
		return
	}
	tokenOut := pool.Token1
	if tokenIn == pool.Token1 {
		tokenOut = pool.Token0
	}

	fmt.Fprint(c.out, Bold+"Enter Amount In (base units): "+Reset)
	line, _ := c.in.ReadString('\n')
	amountIn, err := uint256.FromDecimal(strings.TrimSpace(line))
	if err != nil {
		fmt.Fprintln(c.out, Red+"Invalid amount: "+err.Error()+Reset)
		return
	}

	c.printQuote(state, pool, tokenIn, tokenOut, amountIn)
}

func (c *console) printQuote(state *engine.State, pool uniswapv2.Pool, tokenIn, tokenOut common.Address, amountIn *uint256.Int) {
	tokens := tokenindexer.New().Index(state.Tokens)

	// Fee-on-transfer tokens burn part of the input on its way into the pool
	// and part of the output on its way to the recipient.
	received := tokens.Delivered(tokenIn, amountIn)
	amountOut, err := calculator.GetAmountOut(received, tokenIn, tokenOut, pool)
	if err != nil {
		fmt.Fprintln(c.out, Red+"Quote failed: "+err.Error()+Reset)
		return
	}
	delivered := tokens.Delivered(tokenOut, amountOut)

	header(c.out, "QUOTE")
	fmt.Fprintf(c.out, "   %s %s -> %s%s %s%s\n", amountIn.Dec(), tokens.Label(tokenIn), Green, delivered.Dec(), tokens.Label(tokenOut), Reset)
	if !received.Eq(amountIn) {
		fmt.Fprintf(c.out, "   %sPool receives %s %s after the transfer fee%s\n", Yellow, received.Dec(), tokens.Label(tokenIn), Reset)
	}
	if !delivered.Eq(amountOut) {
		fmt.Fprintf(c.out, "   %sPool sends %s %s before the transfer fee%s\n", Yellow, amountOut.Dec(), tokens.Label(tokenOut), Reset)
	}

	if rate, err := calculator.GetExchangeRate(tokenIn, tokenOut, tokens.Decimals(tokenIn, c.quoteDecimals), pool); err == nil {
		fmt.Fprintf(c.out, "   %sSpot: 1 %s = %s base units of %s%s\n", Gray, tokens.Label(tokenIn), rate.Dec(), tokens.Label(tokenOut), Reset)
	}
}

func (c *console) printPool(state *engine.State, address common.Address) {
	pool, ok := indexer.New().Index(state.Pools).GetByAddress(address)
	if !ok {
		fmt.Fprintln(c.out, Red+"Pool not found."+Reset)
		return
	}
	tokens := tokenindexer.New().Index(state.Tokens)

	header(c.out, fmt.Sprintf("POOL #%d", pool.ID))
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Address\t%s\t\n", pool.Address.Hex())
	fmt.Fprintf(w, "Token0\t%s (%s)\t\n", pool.Token0.Hex(), tokens.Label(pool.Token0))
	fmt.Fprintf(w, "Token1\t%s (%s)\t\n", pool.Token1.Hex(), tokens.Label(pool.Token1))
	fmt.Fprintf(w, "Reserve0\t%s\t\n", pool.Reserve0.Dec())
	fmt.Fprintf(w, "Reserve1\t%s\t\n", pool.Reserve1.Dec())
	fmt.Fprintf(w, "Total Shares\t%s\t\n", pool.TotalShares.Dec())
	fmt.Fprintf(w, "Fee\t%d bps\t\n", pool.FeeBps)
	w.Flush()
}

// readAddress reads one hex address from the input.
func (c *console) readAddress() (common.Address, bool) {
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return common.Address{}, false
	}
	line = strings.TrimSpace(line)
	if !common.IsHexAddress(line) {
		fmt.Fprintln(c.out, Red+"Invalid address."+Reset)
		return common.Address{}, false
	}
	return common.HexToAddress(line), true
}

// header prints a styled section header
func header(w io.Writer, title string) {
	fmt.Fprintln(w, "\n"+Bold+Cyan+":: "+title+" ::"+Reset)
}
