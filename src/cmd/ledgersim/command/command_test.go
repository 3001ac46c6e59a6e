package command

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/mosaicnetworks/ledgersim/src/client"
	"github.com/mosaicnetworks/ledgersim/src/common"
	"github.com/mosaicnetworks/ledgersim/src/config"
	"github.com/mosaicnetworks/ledgersim/src/crypto/keys"
	"github.com/mosaicnetworks/ledgersim/src/ledgersim"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func startEngine(t *testing.T) string {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.ListenAddress = "127.0.0.1:0"
	conf.Throughput = 100000
	conf.LatencyMs = 0

	engine := ledgersim.NewLedgersim(conf)
	if err := engine.Init(); err != nil {
		t.Fatalf("err: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return engine.Server.LocalAddr()
}

func dialClient(t *testing.T, ctx context.Context, addr string) *client.Client {
	c, err := client.Dial(ctx, addr, common.NewTestEntry(t, logrus.DebugLevel))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSendAndCount(t *testing.T) {
	addr := startEngine(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sender := dialClient(t, ctx, addr)
	if err := sendTransactions(ctx, sender, 50); err != nil {
		t.Fatalf("err: %v", err)
	}

	counter := dialClient(t, ctx, addr)
	if err := countTransactions(ctx, counter, 50); err != nil {
		t.Fatalf("err: %v", err)
	}

	short, cancelShort := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancelShort()

	if err := countTransactions(short, counter, 51); err == nil {
		t.Fatalf("count should fail when transactions are missing")
	}
}

func TestKeygen(t *testing.T) {
	dir := t.TempDir()

	privKeyFile = filepath.Join(dir, "keys", "priv_key")
	pubKeyFile = filepath.Join(dir, "keys", "key.pub")

	if err := keygen(nil, nil); err != nil {
		t.Fatalf("err: %v", err)
	}

	key, err := keys.NewSimpleKeyfile(privKeyFile).ReadKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	pub, err := ioutil.ReadFile(pubKeyFile)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if string(pub) != keys.PublicKeyHex(&key.PublicKey) {
		t.Fatalf("public key file should match the private key")
	}

	if err := keygen(nil, nil); err == nil {
		t.Fatalf("keygen should refuse to overwrite a key")
	}
}

func TestRunFlagsValidation(t *testing.T) {
	t.Cleanup(func() {
		_config = config.NewDefaultConfig()
		viper.Reset()
	})

	cmd := NewRunCmd()
	if err := cmd.Flags().Set("throughput", "0"); err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := cmd.Flags().Set("datadir", t.TempDir()); err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := loadConfig(cmd, nil); err == nil {
		t.Fatalf("loadConfig should reject a zero throughput")
	}
}
