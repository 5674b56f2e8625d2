package deploy

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"stark-wallet/internal/account"
	"stark-wallet/internal/observability"
	"stark-wallet/internal/starkcurve"
	"stark-wallet/internal/starknet/stub"
)

var testClassHash = big.NewInt(0xC1A55)

func testAccount(t *testing.T, rpc *stub.Client) *account.Account {
	t.Helper()

	acct, err := account.New(rpc, starkcurve.EncodeShortString("SN_SEPOLIA"), testClassHash, big.NewInt(0x5eed))
	if err != nil {
		t.Fatalf("account.New failed: %v", err)
	}
	return acct
}

func TestDeployIfNeededSubmitsOnce(t *testing.T) {
	rpc := stub.NewClient()
	g := NewGatekeeper(rpc, DefaultFeeMultiplier, time.Minute, zerolog.Nop())
	acct := testAccount(t, rpc)

	deployed := testutil.ToFloat64(observability.DefaultMetrics.AccountsDeployed)
	if err := g.DeployIfNeeded(context.Background(), acct); err != nil {
		t.Fatalf("DeployIfNeeded failed: %v", err)
	}
	if got := rpc.DeploySubmissions.Load(); got != 1 {
		t.Errorf("deploy submissions: got %d, want 1", got)
	}
	if got := testutil.ToFloat64(observability.DefaultMetrics.AccountsDeployed) - deployed; got != 1 {
		t.Errorf("accounts deployed counter delta: got %v, want 1", got)
	}

	// Second call hits the local cache, no further chain traffic.
	reads := rpc.ReadCalls.Load()
	if err := g.DeployIfNeeded(context.Background(), acct); err != nil {
		t.Fatalf("second DeployIfNeeded failed: %v", err)
	}
	if got := rpc.DeploySubmissions.Load(); got != 1 {
		t.Errorf("deploy submissions after repeat: got %d, want 1", got)
	}
	if got := rpc.ReadCalls.Load(); got != reads {
		t.Errorf("repeat call made %d chain reads", got-reads)
	}
}

func TestDeployIfNeededConcurrent(t *testing.T) {
	rpc := stub.NewClient()
	g := NewGatekeeper(rpc, DefaultFeeMultiplier, time.Minute, zerolog.Nop())
	acct := testAccount(t, rpc)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = g.DeployIfNeeded(context.Background(), acct)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("goroutine %d: %v", i, err)
		}
	}
	if got := rpc.DeploySubmissions.Load(); got != 1 {
		t.Errorf("deploy submissions under concurrency: got %d, want 1", got)
	}
}

func TestDeployIfNeededAlreadyLive(t *testing.T) {
	rpc := stub.NewClient()
	g := NewGatekeeper(rpc, DefaultFeeMultiplier, time.Minute, zerolog.Nop())
	acct := testAccount(t, rpc)

	rpc.MarkDeployed(acct.Address(), testClassHash)

	if err := g.DeployIfNeeded(context.Background(), acct); err != nil {
		t.Fatalf("DeployIfNeeded failed: %v", err)
	}
	if got := rpc.DeploySubmissions.Load(); got != 0 {
		t.Errorf("deploy submissions for live account: got %d, want 0", got)
	}
}

func TestDeployIfNeededFailure(t *testing.T) {
	rpc := stub.NewClient()
	rpc.FailDeploy = true
	g := NewGatekeeper(rpc, DefaultFeeMultiplier, time.Minute, zerolog.Nop())
	acct := testAccount(t, rpc)

	err := g.DeployIfNeeded(context.Background(), acct)
	if !errors.Is(err, ErrDeploymentFailed) {
		t.Fatalf("got %v, want ErrDeploymentFailed", err)
	}

	// A later attempt submits again; the failure is not cached as success.
	retries := testutil.ToFloat64(observability.DefaultMetrics.DeploymentRetries)
	rpc.FailDeploy = false
	if err := g.DeployIfNeeded(context.Background(), acct); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if got := rpc.DeploySubmissions.Load(); got != 2 {
		t.Errorf("deploy submissions: got %d, want 2", got)
	}
	if got := testutil.ToFloat64(observability.DefaultMetrics.DeploymentRetries) - retries; got != 1 {
		t.Errorf("deployment retries counter delta: got %v, want 1", got)
	}
}

func TestIsDeployed(t *testing.T) {
	rpc := stub.NewClient()
	g := NewGatekeeper(rpc, DefaultFeeMultiplier, time.Minute, zerolog.Nop())

	addr := big.NewInt(0xF00)
	live, err := g.IsDeployed(context.Background(), addr)
	if err != nil {
		t.Fatalf("IsDeployed failed: %v", err)
	}
	if live {
		t.Error("undeployed address reported live")
	}

	rpc.MarkDeployed(addr, testClassHash)
	live, err = g.IsDeployed(context.Background(), addr)
	if err != nil {
		t.Fatalf("IsDeployed failed: %v", err)
	}
	if !live {
		t.Error("deployed address reported not live")
	}
}
