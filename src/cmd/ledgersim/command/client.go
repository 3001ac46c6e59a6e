package command

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/mosaicnetworks/ledgersim/src/client"
	"github.com/mosaicnetworks/ledgersim/src/crypto/keys"
	"github.com/mosaicnetworks/ledgersim/src/ledger"
	"github.com/spf13/cobra"
)

// Client modes.
const (
	sendMode  = "send"
	countMode = "count"
)

var (
	connectAddr     = "localhost:8080"
	numTransactions = 1000
	waitDuration    = 10 * time.Second
	clientKeyFile   string
)

// emptyOperation is the operation carried by the transactions of send mode.
type emptyOperation struct{}

// NewClientCmd returns the command that runs the test client
func NewClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client [send|count]",
		Short: "Send transactions to, or count the transactions of, a sequencer",
		Long: `Connects to a sequencer and mirrors its ledger.

send: submits --num transactions signed with --key, or a fresh key.
count: waits up to --wait for the mirror to hold --num transactions, and
fails if it holds any other number.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{sendMode, countMode},
		RunE:      runClient,
	}

	AddClientFlags(cmd)

	return cmd
}

// AddClientFlags adds flags to the client command
func AddClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&connectAddr, "connect", "c", connectAddr, "IP[:Port] of the sequencer, port defaults to 8080")
	cmd.Flags().IntVarP(&numTransactions, "num", "n", numTransactions, "Number of transactions to send or expect")
	cmd.Flags().DurationVarP(&waitDuration, "wait", "w", waitDuration, "How long to wait for transactions")
	cmd.Flags().StringVar(&clientKeyFile, "key", "", "Private key file, a new key is generated if empty")
}

func runClient(cmd *cobra.Command, args []string) error {
	if args[0] != sendMode && args[0] != countMode {
		return fmt.Errorf("unknown mode %q, expected %s or %s", args[0], sendMode, countMode)
	}

	logger := _config.Logger().WithField("mode", args[0])

	ctx, cancel := context.WithTimeout(context.Background(), waitDuration)
	defer cancel()

	c, err := client.Dial(ctx, connectAddr, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	switch args[0] {
	case sendMode:
		return sendTransactions(ctx, c, numTransactions)
	default:
		return countTransactions(ctx, c, numTransactions)
	}
}

func clientKey() (*ecdsa.PrivateKey, error) {
	if clientKeyFile == "" {
		return keys.GenerateECDSAKey()
	}
	return keys.NewSimpleKeyfile(clientKeyFile).ReadKey()
}

// sendTransactions submits n transactions and waits until they are all
// mirrored, so that closing the connection can not discard unread ones.
func sendTransactions(ctx context.Context, c *client.Client, n int) error {
	key, err := clientKey()
	if err != nil {
		return err
	}

	op, err := ledger.EncodeOperation(emptyOperation{})
	if err != nil {
		return err
	}

	source := ledger.NewAccountID(&key.PublicKey)

	for i := 0; i < n; i++ {
		tx, err := ledger.NewTransaction(source, op, key)
		if err != nil {
			return err
		}
		if err := c.Submit(tx); err != nil {
			return fmt.Errorf("submitting transaction %d: %w", i, err)
		}
	}

	fmt.Printf("Sent %d transactions.\n", n)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for countFrom(c.Ledger(), source) < n {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%d of %d transactions accepted: %w", countFrom(c.Ledger(), source), n, ctx.Err())
		case <-c.Done():
			return fmt.Errorf("connection closed: %v", c.Err())
		case <-ticker.C:
		}
	}

	fmt.Printf("All %d transactions accepted.\n", n)

	return nil
}

// countFrom counts the transactions of l submitted by source.
func countFrom(l *ledger.Ledger, source ledger.AccountID) int {
	count := 0
	for _, id := range l.EpochIDs() {
		epoch, err := l.GetEpoch(id)
		if err != nil {
			continue
		}
		for _, tx := range epoch.Transactions {
			if tx.Source() == source {
				count++
			}
		}
	}
	return count
}

func countTransactions(ctx context.Context, c *client.Client, n int) error {
	if err := c.WaitForTransactions(ctx, n); err != nil && err != context.DeadlineExceeded {
		return err
	}

	got := c.Ledger().NumTransactions()
	if got != n {
		return fmt.Errorf("Transaction count is wrong: expected %d, got %d", n, got)
	}

	fmt.Println("Transaction count is correct.")

	return nil
}
