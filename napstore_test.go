package napstore_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/phamhp/napstore"
	"github.com/phamhp/napstore/deposit"
	"github.com/phamhp/napstore/id"
	"github.com/phamhp/napstore/license"
	"github.com/phamhp/napstore/store/memory"
	"github.com/phamhp/napstore/user"
)

func newTestEngine(t *testing.T, opts ...napstore.Option) (*napstore.Engine, *memory.Store) {
	t.Helper()

	st := memory.New()
	eng := napstore.New(st, opts...)

	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("start engine: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	return eng, st
}

// makeAdmin promotes a fresh user to admin directly through the store,
// since role changes otherwise require an existing admin.
func makeAdmin(t *testing.T, eng *napstore.Engine, st *memory.Store, email string) *user.User {
	t.Helper()

	ctx := context.Background()
	u, err := eng.CreateUser(ctx, email, "Admin")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	u.Role = user.RoleAdmin
	if err := st.UpdateUser(ctx, u); err != nil {
		t.Fatalf("promote admin: %v", err)
	}
	return u
}

func fundUser(t *testing.T, eng *napstore.Engine, adminID, userID id.UserID, amount int64) {
	t.Helper()
	if err := eng.AdjustBalance(context.Background(), adminID, userID, amount, "test funding"); err != nil {
		t.Fatalf("fund user: %v", err)
	}
}

func incomingTransfer(orderID string, amount int64) *deposit.Notification {
	return &deposit.Notification{
		ReferenceCode:  "FT123",
		TransferType:   deposit.TransferIn,
		TransferAmount: amount,
		Content:        "CK khach hang " + orderID,
	}
}

func TestCreateDeposit(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	u, err := eng.CreateUser(ctx, "dep@example.com", "Dep")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("BelowMinimum", func(t *testing.T) {
		_, err := eng.CreateDeposit(ctx, u.ID, deposit.MinimumAmount-1)
		if !errors.Is(err, napstore.ErrAmountBelowMinimum) {
			t.Errorf("got %v, want ErrAmountBelowMinimum", err)
		}
	})

	t.Run("AssignsOrderID", func(t *testing.T) {
		d, err := eng.CreateDeposit(ctx, u.ID, 50000)
		if err != nil {
			t.Fatal(err)
		}
		if d.Status != deposit.StatusPending {
			t.Errorf("status = %s, want pending", d.Status)
		}
		if _, ok := deposit.ExtractOrderID(d.OrderID, ""); !ok {
			t.Errorf("order id %q does not match the reference pattern", d.OrderID)
		}
	})

	t.Run("PendingCap", func(t *testing.T) {
		capped, err := eng.CreateUser(ctx, "cap@example.com", "Cap")
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < deposit.MaxPending; i++ {
			if _, err := eng.CreateDeposit(ctx, capped.ID, 50000); err != nil {
				t.Fatalf("deposit %d: %v", i, err)
			}
		}
		if _, err := eng.CreateDeposit(ctx, capped.ID, 50000); !errors.Is(err, napstore.ErrTooManyPending) {
			t.Errorf("got %v, want ErrTooManyPending", err)
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		_, err := eng.CreateDeposit(ctx, id.NewUserID(), 50000)
		if !napstore.IsNotFound(err) {
			t.Errorf("got %v, want not-found", err)
		}
	})
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	u, err := eng.CreateUser(ctx, "webhook@example.com", "Hook")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("SettlesAndCredits", func(t *testing.T) {
		d, err := eng.CreateDeposit(ctx, u.ID, 200000)
		if err != nil {
			t.Fatal(err)
		}

		result, err := eng.Reconcile(ctx, incomingTransfer(d.OrderID, 200000))
		if err != nil {
			t.Fatal(err)
		}
		if result.Outcome != napstore.OutcomeSettled {
			t.Fatalf("outcome = %s, want settled", result.Outcome)
		}
		if result.Deposit.Status != deposit.StatusCompleted {
			t.Errorf("deposit status = %s, want completed", result.Deposit.Status)
		}

		balance, err := eng.Balance(ctx, u.ID)
		if err != nil {
			t.Fatal(err)
		}
		if balance.Amount != 200000 {
			t.Errorf("balance = %d, want 200000", balance.Amount)
		}
	})

	t.Run("RedeliveryDoesNotDoubleCredit", func(t *testing.T) {
		d, err := eng.CreateDeposit(ctx, u.ID, 100000)
		if err != nil {
			t.Fatal(err)
		}
		before, _ := eng.Balance(ctx, u.ID)

		n := incomingTransfer(d.OrderID, 100000)
		if _, err := eng.Reconcile(ctx, n); err != nil {
			t.Fatal(err)
		}

		// The gateway redelivers the same webhook.
		result, err := eng.Reconcile(ctx, n)
		if err != nil {
			t.Fatal(err)
		}
		if result.Outcome != napstore.OutcomeAlreadyProcessed {
			t.Errorf("outcome = %s, want already_processed", result.Outcome)
		}

		after, _ := eng.Balance(ctx, u.ID)
		if after.Amount != before.Amount+100000 {
			t.Errorf("balance credited twice: before=%d after=%d", before.Amount, after.Amount)
		}
	})

	t.Run("CreditsReceivedAmountOnMismatch", func(t *testing.T) {
		d, err := eng.CreateDeposit(ctx, u.ID, 150000)
		if err != nil {
			t.Fatal(err)
		}
		before, _ := eng.Balance(ctx, u.ID)

		// 50.000đ short of the request, well outside tolerance.
		result, err := eng.Reconcile(ctx, incomingTransfer(d.OrderID, 100000))
		if err != nil {
			t.Fatal(err)
		}
		if result.Outcome != napstore.OutcomeSettled {
			t.Fatalf("outcome = %s, want settled", result.Outcome)
		}
		if result.Deposit.ActualAmount != 100000 {
			t.Errorf("actual amount = %d, want 100000", result.Deposit.ActualAmount)
		}

		after, _ := eng.Balance(ctx, u.ID)
		if after.Amount != before.Amount+100000 {
			t.Errorf("credited %d, want the received 100000", after.Amount-before.Amount)
		}
	})

	t.Run("IgnoresOutgoing", func(t *testing.T) {
		result, err := eng.Reconcile(ctx, &deposit.Notification{
			TransferType:   deposit.TransferOut,
			TransferAmount: 999999,
			Content:        "NAPANYTHING",
		})
		if err != nil {
			t.Fatal(err)
		}
		if result.Outcome != napstore.OutcomeIgnoredOutgoing {
			t.Errorf("outcome = %s, want ignored_outgoing", result.Outcome)
		}
	})

	t.Run("NoOrderID", func(t *testing.T) {
		result, err := eng.Reconcile(ctx, &deposit.Notification{
			TransferType:   deposit.TransferIn,
			TransferAmount: 50000,
			Content:        "chuyen tien an trua",
		})
		if err != nil {
			t.Fatal(err)
		}
		if result.Outcome != napstore.OutcomeNoOrderID {
			t.Errorf("outcome = %s, want no_order_id", result.Outcome)
		}
	})

	t.Run("UnmatchedReference", func(t *testing.T) {
		result, err := eng.Reconcile(ctx, incomingTransfer("NAPZZZ9999", 50000))
		if err != nil {
			t.Fatal(err)
		}
		if result.Outcome != napstore.OutcomeUnmatched {
			t.Errorf("outcome = %s, want unmatched", result.Outcome)
		}
		if result.OrderID != "NAPZZZ9999" {
			t.Errorf("order id = %s", result.OrderID)
		}
	})

	t.Run("MatchesMangledContent", func(t *testing.T) {
		d, err := eng.CreateDeposit(ctx, u.ID, 60000)
		if err != nil {
			t.Fatal(err)
		}

		// Banks lowercase and glue the description onto other text.
		n := &deposit.Notification{
			TransferType:   deposit.TransferIn,
			TransferAmount: 60000,
			Content:        "mbvcb.123456." + strings.ToLower(d.OrderID) + ".ck nhanh",
		}
		result, err := eng.Reconcile(ctx, n)
		if err != nil {
			t.Fatal(err)
		}
		if result.Outcome != napstore.OutcomeSettled {
			t.Errorf("outcome = %s, want settled", result.Outcome)
		}
	})
}

func TestManualDepositReview(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	admin := makeAdmin(t, eng, st, "boss@example.com")
	u, err := eng.CreateUser(ctx, "manual@example.com", "Manual")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("ConfirmCreditsRequestedAmount", func(t *testing.T) {
		d, err := eng.CreateDeposit(ctx, u.ID, 75000)
		if err != nil {
			t.Fatal(err)
		}
		settled, err := eng.ConfirmDeposit(ctx, admin.ID, d.ID)
		if err != nil {
			t.Fatal(err)
		}
		if settled.Status != deposit.StatusCompleted {
			t.Errorf("status = %s, want completed", settled.Status)
		}
		balance, _ := eng.Balance(ctx, u.ID)
		if balance.Amount != 75000 {
			t.Errorf("balance = %d, want 75000", balance.Amount)
		}
	})

	t.Run("RejectMovesNoMoney", func(t *testing.T) {
		d, err := eng.CreateDeposit(ctx, u.ID, 80000)
		if err != nil {
			t.Fatal(err)
		}
		before, _ := eng.Balance(ctx, u.ID)

		if err := eng.RejectDeposit(ctx, admin.ID, d.ID); err != nil {
			t.Fatal(err)
		}

		after, _ := eng.Balance(ctx, u.ID)
		if after.Amount != before.Amount {
			t.Errorf("balance changed on reject: %d -> %d", before.Amount, after.Amount)
		}

		// A late webhook for the rejected deposit must not credit.
		result, err := eng.Reconcile(ctx, incomingTransfer(d.OrderID, 80000))
		if err != nil {
			t.Fatal(err)
		}
		if result.Outcome != napstore.OutcomeAlreadyProcessed {
			t.Errorf("outcome = %s, want already_processed", result.Outcome)
		}
	})

	t.Run("RejectTwice", func(t *testing.T) {
		d, err := eng.CreateDeposit(ctx, u.ID, 90000)
		if err != nil {
			t.Fatal(err)
		}
		if err := eng.RejectDeposit(ctx, admin.ID, d.ID); err != nil {
			t.Fatal(err)
		}
		if err := eng.RejectDeposit(ctx, admin.ID, d.ID); !errors.Is(err, napstore.ErrDepositNotPending) {
			t.Errorf("got %v, want ErrDepositNotPending", err)
		}
	})

	t.Run("NonAdminRefused", func(t *testing.T) {
		d, err := eng.CreateDeposit(ctx, u.ID, 95000)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := eng.ConfirmDeposit(ctx, u.ID, d.ID); !errors.Is(err, napstore.ErrUnauthorized) {
			t.Errorf("confirm: got %v, want ErrUnauthorized", err)
		}
		if err := eng.RejectDeposit(ctx, u.ID, d.ID); !errors.Is(err, napstore.ErrUnauthorized) {
			t.Errorf("reject: got %v, want ErrUnauthorized", err)
		}
	})
}

func TestPurchase(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	admin := makeAdmin(t, eng, st, "sales@example.com")
	u, err := eng.CreateUser(ctx, "buyer@example.com", "Buyer")
	if err != nil {
		t.Fatal(err)
	}
	fundUser(t, eng, admin.ID, u.ID, 500000)

	t.Run("DebitsBalance", func(t *testing.T) {
		l, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanMonthly)
		if err != nil {
			t.Fatal(err)
		}
		if l.Status != license.StatusActive {
			t.Errorf("status = %s, want active", l.Status)
		}
		if !license.ValidKey(l.Key) {
			t.Errorf("key %q has wrong shape", l.Key)
		}
		if l.ExpiresAt == nil {
			t.Fatal("monthly license has no expiry")
		}

		balance, _ := eng.Balance(ctx, u.ID)
		if balance.Amount != 300000 {
			t.Errorf("balance = %d, want 300000", balance.Amount)
		}
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		before, _ := eng.Balance(ctx, u.ID)

		_, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanLifetime) // 600.000đ
		if !errors.Is(err, napstore.ErrInsufficientBalance) {
			t.Fatalf("got %v, want ErrInsufficientBalance", err)
		}

		// Nothing moved, nothing was issued.
		after, _ := eng.Balance(ctx, u.ID)
		if after.Amount != before.Amount {
			t.Errorf("balance changed on failed purchase: %d -> %d", before.Amount, after.Amount)
		}
	})

	t.Run("UnknownProduct", func(t *testing.T) {
		_, err := eng.Purchase(ctx, u.ID, "nonsense", license.PlanMonthly)
		if !errors.Is(err, napstore.ErrProductNotFound) {
			t.Errorf("got %v, want ErrProductNotFound", err)
		}
	})

	t.Run("UnknownPlan", func(t *testing.T) {
		_, err := eng.Purchase(ctx, u.ID, "regfb", license.Plan("weekly"))
		if !errors.Is(err, napstore.ErrPlanNotFound) {
			t.Errorf("got %v, want ErrPlanNotFound", err)
		}
	})

	t.Run("LifetimeHasNoExpiry", func(t *testing.T) {
		fundUser(t, eng, admin.ID, u.ID, 600000)
		l, err := eng.Purchase(ctx, u.ID, "clonetk", license.PlanLifetime)
		if err != nil {
			t.Fatal(err)
		}
		if !l.IsLifetime() {
			t.Error("lifetime license has an expiry")
		}
	})
}

func TestIssue(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	admin := makeAdmin(t, eng, st, "issuer@example.com")
	u, err := eng.CreateUser(ctx, "gift@example.com", "Gift")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("WithOwnerStartsActive", func(t *testing.T) {
		l, err := eng.Issue(ctx, admin.ID, u.ID, "regfb", license.PlanMonthly)
		if err != nil {
			t.Fatal(err)
		}
		if l.Status != license.StatusActive {
			t.Errorf("status = %s, want active", l.Status)
		}
		// No charge for issued licenses.
		balance, _ := eng.Balance(ctx, u.ID)
		if balance.Amount != 0 {
			t.Errorf("balance = %d, want 0", balance.Amount)
		}
	})

	t.Run("WithoutOwnerStaysPending", func(t *testing.T) {
		l, err := eng.Issue(ctx, admin.ID, id.ID{}, "regfb", license.PlanMonthly)
		if err != nil {
			t.Fatal(err)
		}
		if l.Status != license.StatusPending {
			t.Errorf("status = %s, want pending", l.Status)
		}
	})

	t.Run("NonAdminRefused", func(t *testing.T) {
		if _, err := eng.Issue(ctx, u.ID, u.ID, "regfb", license.PlanMonthly); !errors.Is(err, napstore.ErrUnauthorized) {
			t.Errorf("got %v, want ErrUnauthorized", err)
		}
	})
}

func TestBindHardwareID(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	admin := makeAdmin(t, eng, st, "hw@example.com")

	buy := func(t *testing.T, email string) (*user.User, *license.License) {
		t.Helper()
		u, err := eng.CreateUser(ctx, email, "HW")
		if err != nil {
			t.Fatal(err)
		}
		fundUser(t, eng, admin.ID, u.ID, 200000)
		l, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanMonthly)
		if err != nil {
			t.Fatal(err)
		}
		return u, l
	}

	hwid := "f0e1d2c3b4a596870f1e2d3c4b5a6978"

	t.Run("BindAndRebindIdempotent", func(t *testing.T) {
		_, l := buy(t, "bind1@example.com")

		bound, err := eng.BindHardwareID(ctx, l.ID, hwid)
		if err != nil {
			t.Fatal(err)
		}
		if bound.HWID != hwid {
			t.Errorf("hwid = %q", bound.HWID)
		}
		if bound.ActivatedAt == nil {
			t.Error("activation timestamp not set")
		}

		// Same machine binds again on every launch.
		again, err := eng.BindHardwareID(ctx, l.ID, hwid)
		if err != nil {
			t.Fatalf("rebind same hwid: %v", err)
		}
		if again.HWID != hwid {
			t.Errorf("hwid = %q after rebind", again.HWID)
		}
	})

	t.Run("TooShort", func(t *testing.T) {
		_, l := buy(t, "bind2@example.com")
		if _, err := eng.BindHardwareID(ctx, l.ID, "short"); !errors.Is(err, napstore.ErrInvalidHWID) {
			t.Errorf("got %v, want ErrInvalidHWID", err)
		}
	})

	t.Run("BoundLicenseRefusesSecondMachine", func(t *testing.T) {
		_, l := buy(t, "bind3@example.com")
		first := "aaaa1111bbbb2222cccc3333dddd4444"
		if _, err := eng.BindHardwareID(ctx, l.ID, first); err != nil {
			t.Fatal(err)
		}
		second := "eeee5555ffff6666aaaa7777bbbb8888"
		if _, err := eng.BindHardwareID(ctx, l.ID, second); !errors.Is(err, napstore.ErrHWIDInUse) {
			t.Errorf("got %v, want ErrHWIDInUse", err)
		}
	})

	t.Run("HWIDLiveOnAnotherLicense", func(t *testing.T) {
		_, l1 := buy(t, "bind4@example.com")
		_, l2 := buy(t, "bind5@example.com")

		shared := "9999aaaa8888bbbb7777cccc6666dddd"
		if _, err := eng.BindHardwareID(ctx, l1.ID, shared); err != nil {
			t.Fatal(err)
		}
		if _, err := eng.BindHardwareID(ctx, l2.ID, shared); !errors.Is(err, napstore.ErrHWIDInUse) {
			t.Errorf("got %v, want ErrHWIDInUse", err)
		}
	})

	t.Run("HistoryBlocksOtherAccounts", func(t *testing.T) {
		_, l1 := buy(t, "bind6@example.com")
		_, l2 := buy(t, "bind7@example.com")

		used := "1234abcd5678efab9012cdef3456abcd"
		if _, err := eng.BindHardwareID(ctx, l1.ID, used); err != nil {
			t.Fatal(err)
		}
		// Admin frees the binding; the fingerprint stays in history.
		if _, err := eng.ResetHardwareID(ctx, admin.ID, l1.ID); err != nil {
			t.Fatal(err)
		}

		if _, err := eng.BindHardwareID(ctx, l2.ID, used); !errors.Is(err, napstore.ErrHWIDReused) {
			t.Errorf("got %v, want ErrHWIDReused", err)
		}

		// The original owner may rebind the same machine.
		if _, err := eng.BindHardwareID(ctx, l1.ID, used); err != nil {
			t.Errorf("original owner rebind: %v", err)
		}
	})

	t.Run("RevokedRefused", func(t *testing.T) {
		_, l := buy(t, "bind8@example.com")
		if err := eng.Revoke(ctx, admin.ID, l.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := eng.BindHardwareID(ctx, l.ID, hwid); !errors.Is(err, napstore.ErrLicenseRevoked) {
			t.Errorf("got %v, want ErrLicenseRevoked", err)
		}
	})
}

func TestHWIDResetFlow(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	admin := makeAdmin(t, eng, st, "reset@example.com")
	u, err := eng.CreateUser(ctx, "owner@example.com", "Owner")
	if err != nil {
		t.Fatal(err)
	}
	fundUser(t, eng, admin.ID, u.ID, 200000)

	l, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanMonthly)
	if err != nil {
		t.Fatal(err)
	}
	hwid := "0011223344556677889900aabbccddee"
	if _, err := eng.BindHardwareID(ctx, l.ID, hwid); err != nil {
		t.Fatal(err)
	}

	stranger, err := eng.CreateUser(ctx, "stranger@example.com", "Stranger")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("OnlyOwnerMayRequest", func(t *testing.T) {
		if err := eng.RequestHWIDReset(ctx, stranger.ID, l.ID); !errors.Is(err, napstore.ErrForbidden) {
			t.Errorf("got %v, want ErrForbidden", err)
		}
		if err := eng.RequestHWIDReset(ctx, u.ID, l.ID); err != nil {
			t.Fatal(err)
		}
		got, _ := eng.GetLicense(ctx, l.ID)
		if !got.ResetRequested {
			t.Error("reset flag not set")
		}
	})

	t.Run("AdminResetClearsBinding", func(t *testing.T) {
		reset, err := eng.ResetHardwareID(ctx, admin.ID, l.ID)
		if err != nil {
			t.Fatal(err)
		}
		if reset.IsBound() {
			t.Error("still bound after reset")
		}
		if reset.ResetRequested {
			t.Error("reset flag survived the reset")
		}
		if !reset.HistoryContains(hwid) {
			t.Error("old fingerprint dropped from history")
		}
	})

	t.Run("ResetUnboundRefused", func(t *testing.T) {
		if _, err := eng.ResetHardwareID(ctx, admin.ID, l.ID); !errors.Is(err, napstore.ErrInvalidHWID) {
			t.Errorf("got %v, want ErrInvalidHWID", err)
		}
	})
}

func TestRenew(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	admin := makeAdmin(t, eng, st, "renew@example.com")
	u, err := eng.CreateUser(ctx, "sub@example.com", "Sub")
	if err != nil {
		t.Fatal(err)
	}
	fundUser(t, eng, admin.ID, u.ID, 2000000)

	t.Run("StacksOnCurrentExpiry", func(t *testing.T) {
		l, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanMonthly)
		if err != nil {
			t.Fatal(err)
		}
		wasDue := *l.ExpiresAt

		renewed, err := eng.Renew(ctx, u.ID, l.ID, "1_month")
		if err != nil {
			t.Fatal(err)
		}

		want := wasDue.Add(30 * 24 * time.Hour)
		if !renewed.ExpiresAt.Equal(want) {
			t.Errorf("expiry = %v, want %v", renewed.ExpiresAt, want)
		}
	})

	t.Run("LifetimeNotRenewable", func(t *testing.T) {
		l, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanLifetime)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := eng.Renew(ctx, u.ID, l.ID, "1_month"); !errors.Is(err, napstore.ErrNotRenewable) {
			t.Errorf("got %v, want ErrNotRenewable", err)
		}
	})

	t.Run("UnknownOption", func(t *testing.T) {
		l, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanMonthly)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := eng.Renew(ctx, u.ID, l.ID, "2_weeks"); !errors.Is(err, napstore.ErrPlanNotFound) {
			t.Errorf("got %v, want ErrPlanNotFound", err)
		}
	})

	t.Run("OnlyOwnerMayRenew", func(t *testing.T) {
		other, err := eng.CreateUser(ctx, "other@example.com", "Other")
		if err != nil {
			t.Fatal(err)
		}
		l, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanMonthly)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := eng.Renew(ctx, other.ID, l.ID, "1_month"); !errors.Is(err, napstore.ErrForbidden) {
			t.Errorf("got %v, want ErrForbidden", err)
		}
	})

	t.Run("DailyRenewal", func(t *testing.T) {
		daily, err := eng.CreateUser(ctx, "daily@example.com", "Daily")
		if err != nil {
			t.Fatal(err)
		}
		fundUser(t, eng, admin.ID, daily.ID, 50000)

		l, err := eng.Purchase(ctx, daily.ID, "regfb", license.PlanDaily)
		if err != nil {
			t.Fatal(err)
		}
		wasDue := *l.ExpiresAt

		renewed, err := eng.RenewDaily(ctx, daily.ID, l.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !renewed.ExpiresAt.After(wasDue) {
			t.Errorf("expiry did not advance: %v -> %v", wasDue, renewed.ExpiresAt)
		}
		// Daily expiries are always pinned to end of day.
		if h, m, _ := renewed.ExpiresAt.Clock(); h != 23 || m != 59 {
			t.Errorf("expiry %v not pinned to end of day", renewed.ExpiresAt)
		}

		if _, err := eng.RenewDaily(ctx, u.ID, l.ID); !errors.Is(err, napstore.ErrForbidden) {
			t.Errorf("foreign daily renew: got %v, want ErrForbidden", err)
		}
	})

	t.Run("DailyRenewRequiresDailyPlan", func(t *testing.T) {
		l, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanMonthly)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := eng.RenewDaily(ctx, u.ID, l.ID); !errors.Is(err, napstore.ErrNotRenewable) {
			t.Errorf("got %v, want ErrNotRenewable", err)
		}
	})

	t.Run("FailedRenewalLeavesLicenseUntouched", func(t *testing.T) {
		broke, err := eng.CreateUser(ctx, "broke@example.com", "Broke")
		if err != nil {
			t.Fatal(err)
		}

		l, err := eng.Issue(ctx, admin.ID, broke.ID, "regfb", license.PlanMonthly)
		if err != nil {
			t.Fatal(err)
		}
		wasDue := *l.ExpiresAt

		if _, err := eng.Renew(ctx, broke.ID, l.ID, "1_month"); !errors.Is(err, napstore.ErrInsufficientBalance) {
			t.Fatalf("got %v, want ErrInsufficientBalance", err)
		}

		got, err := eng.GetLicense(ctx, l.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !got.ExpiresAt.Equal(wasDue) {
			t.Errorf("failed renewal moved expiry: %v -> %v", wasDue, got.ExpiresAt)
		}
		if got.RenewedAt != nil {
			t.Error("failed renewal stamped RenewedAt")
		}

		daily, err := eng.Issue(ctx, admin.ID, broke.ID, "regfb", license.PlanDaily)
		if err != nil {
			t.Fatal(err)
		}
		dailyDue := *daily.ExpiresAt

		if _, err := eng.RenewDaily(ctx, broke.ID, daily.ID); !errors.Is(err, napstore.ErrInsufficientBalance) {
			t.Fatalf("got %v, want ErrInsufficientBalance", err)
		}
		got, err = eng.GetLicense(ctx, daily.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !got.ExpiresAt.Equal(dailyDue) {
			t.Errorf("failed daily renewal moved expiry: %v -> %v", dailyDue, got.ExpiresAt)
		}
	})
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	admin := makeAdmin(t, eng, st, "check@example.com")
	u, err := eng.CreateUser(ctx, "player@example.com", "Player")
	if err != nil {
		t.Fatal(err)
	}
	fundUser(t, eng, admin.ID, u.ID, 400000)

	l, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanMonthly)
	if err != nil {
		t.Fatal(err)
	}
	hwid := "abcdef0123456789abcdef0123456789"
	if _, err := eng.BindHardwareID(ctx, l.ID, hwid); err != nil {
		t.Fatal(err)
	}

	t.Run("Valid", func(t *testing.T) {
		check, err := eng.Validate(ctx, l.Key, hwid)
		if err != nil {
			t.Fatal(err)
		}
		if !check.Valid {
			t.Errorf("invalid: %s", check.Reason)
		}
		if check.Status != license.DisplayActive {
			t.Errorf("status = %s, want active", check.Status)
		}
	})

	t.Run("KeyIsCaseInsensitive", func(t *testing.T) {
		check, err := eng.Validate(ctx, "  "+strings.ToLower(l.Key)+" ", hwid)
		if err != nil {
			t.Fatal(err)
		}
		if !check.Valid {
			t.Errorf("lowercased key rejected: %s", check.Reason)
		}
	})

	t.Run("UnknownKey", func(t *testing.T) {
		check, err := eng.Validate(ctx, "XXXX-YYYY-ZZZZ-0000", hwid)
		if err != nil {
			t.Fatal(err)
		}
		if check.Valid {
			t.Error("unknown key accepted")
		}
	})

	t.Run("HardwareMismatch", func(t *testing.T) {
		check, err := eng.Validate(ctx, l.Key, "ffff0000ffff0000ffff0000ffff0000")
		if err != nil {
			t.Fatal(err)
		}
		if check.Valid {
			t.Error("wrong machine accepted")
		}
		if check.Reason != "hardware mismatch" {
			t.Errorf("reason = %q", check.Reason)
		}
	})

	t.Run("Revoked", func(t *testing.T) {
		if err := eng.Revoke(ctx, admin.ID, l.ID); err != nil {
			t.Fatal(err)
		}
		check, err := eng.Validate(ctx, l.Key, hwid)
		if err != nil {
			t.Fatal(err)
		}
		if check.Valid {
			t.Error("revoked license accepted")
		}
		if check.Status != license.DisplayRevoked {
			t.Errorf("status = %s, want revoked", check.Status)
		}

		// Reactivation restores access.
		if err := eng.Activate(ctx, admin.ID, l.ID); err != nil {
			t.Fatal(err)
		}
		check, err = eng.Validate(ctx, l.Key, hwid)
		if err != nil {
			t.Fatal(err)
		}
		if !check.Valid {
			t.Errorf("reactivated license rejected: %s", check.Reason)
		}
	})
}

func TestBalanceConservation(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	admin := makeAdmin(t, eng, st, "audit@example.com")
	u, err := eng.CreateUser(ctx, "ledger@example.com", "Ledger")
	if err != nil {
		t.Fatal(err)
	}

	// Mixed history: two deposits, a purchase, a renewal, an
	// adjustment.
	d1, _ := eng.CreateDeposit(ctx, u.ID, 300000)
	if _, err := eng.Reconcile(ctx, incomingTransfer(d1.OrderID, 300000)); err != nil {
		t.Fatal(err)
	}
	d2, _ := eng.CreateDeposit(ctx, u.ID, 150000)
	if _, err := eng.ConfirmDeposit(ctx, admin.ID, d2.ID); err != nil {
		t.Fatal(err)
	}
	l, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanMonthly)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Renew(ctx, u.ID, l.ID, "1_month"); err != nil {
		t.Fatal(err)
	}
	if err := eng.AdjustBalance(ctx, admin.ID, u.ID, -5000, "goodwill reversal"); err != nil {
		t.Fatal(err)
	}

	balance, err := eng.Balance(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := st.SumTransactionsByUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sum != balance.Amount {
		t.Errorf("ledger sum %d != balance %d", sum, balance.Amount)
	}

	want := int64(300000 + 150000 - 200000 - 200000 - 5000)
	if balance.Amount != want {
		t.Errorf("balance = %d, want %d", balance.Amount, want)
	}
}

type denyGate struct{ denied string }

func (g *denyGate) Allow(_ context.Context, _ id.UserID, action string) bool {
	return action != g.denied
}

func TestGate(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, napstore.WithGate(&denyGate{denied: napstore.ActionCreateDeposit}))

	u, err := eng.CreateUser(ctx, "gated@example.com", "Gated")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := eng.CreateDeposit(ctx, u.ID, 50000); !errors.Is(err, napstore.ErrRateLimited) {
		t.Errorf("got %v, want ErrRateLimited", err)
	}
	// Other actions pass through the same gate untouched.
	if _, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanDaily); errors.Is(err, napstore.ErrRateLimited) {
		t.Error("purchase blocked by unrelated gate action")
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t)

	admin := makeAdmin(t, eng, st, "stats@example.com")
	u, err := eng.CreateUser(ctx, "rev@example.com", "Rev")
	if err != nil {
		t.Fatal(err)
	}
	fundUser(t, eng, admin.ID, u.ID, 1000000)

	if _, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanMonthly); err != nil {
		t.Fatal(err)
	}
	l, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanDaily)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.RenewDaily(ctx, u.ID, l.ID); err != nil {
		t.Fatal(err)
	}

	stats, err := eng.Stats(ctx, admin.ID, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}

	// 200.000 purchase + 10.000 daily purchase + 10.000 daily renewal.
	if stats.Today.Revenue.Amount != 220000 {
		t.Errorf("today revenue = %d, want 220000", stats.Today.Revenue.Amount)
	}
	if stats.Today.Orders != 3 {
		t.Errorf("today orders = %d, want 3", stats.Today.Orders)
	}
	// Deposits and adjustments are not revenue.
	if stats.Total.Revenue.Amount != stats.Today.Revenue.Amount {
		t.Errorf("total %d != today %d on a fresh store", stats.Total.Revenue.Amount, stats.Today.Revenue.Amount)
	}

	if _, err := eng.Stats(ctx, u.ID, time.Now().UTC()); !errors.Is(err, napstore.ErrUnauthorized) {
		t.Errorf("non-admin stats: got %v, want ErrUnauthorized", err)
	}
}

func TestUsageLogging(t *testing.T) {
	ctx := context.Background()
	eng, st := newTestEngine(t, napstore.WithUsageConfig(2, 50*time.Millisecond))

	admin := makeAdmin(t, eng, st, "usage@example.com")
	u, err := eng.CreateUser(ctx, "hb@example.com", "HB")
	if err != nil {
		t.Fatal(err)
	}
	fundUser(t, eng, admin.ID, u.ID, 200000)

	l, err := eng.Purchase(ctx, u.ID, "regfb", license.PlanMonthly)
	if err != nil {
		t.Fatal(err)
	}

	hwid := "55443322110099887766554433221100"
	for i := 0; i < 4; i++ {
		if err := eng.LogUsage(ctx, l.ID, hwid); err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
	}

	// Wait out a couple of flush intervals.
	deadline := time.Now().Add(2 * time.Second)
	date := time.Now().Format("2006-01-02")
	for {
		n, err := st.CountUsageByDate(ctx, date)
		if err != nil {
			t.Fatal(err)
		}
		if n == 4 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("flushed %d events, want 4", n)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := eng.LogUsage(ctx, id.NewLicenseID(), hwid); !napstore.IsNotFound(err) {
		t.Errorf("unknown license heartbeat: got %v, want not-found", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	for _, email := range []string{"", "   ", "not-an-email"} {
		if _, err := eng.CreateUser(ctx, email, "X"); err == nil {
			t.Errorf("email %q accepted", email)
		}
	}

	u, err := eng.CreateUser(ctx, "  MiXeD@Example.COM ", "Mixed")
	if err != nil {
		t.Fatal(err)
	}
	if u.Email != "mixed@example.com" {
		t.Errorf("email = %q, want normalized lowercase", u.Email)
	}

	if _, err := eng.CreateUser(ctx, "mixed@example.com", "Dup"); !errors.Is(err, napstore.ErrUserExists) {
		t.Errorf("duplicate email: got %v, want ErrUserExists", err)
	}

	got, err := eng.GetUserByEmail(ctx, "MIXED@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != u.ID {
		t.Error("lookup by email returned a different user")
	}
}

func TestOrderIDUniqueness(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	u, err := eng.CreateUser(ctx, "uniq@example.com", "Uniq")
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for i := 0; i < deposit.MaxPending; i++ {
		d, err := eng.CreateDeposit(ctx, u.ID, 50000)
		if err != nil {
			t.Fatal(err)
		}
		if seen[d.OrderID] {
			t.Fatalf("duplicate order id %s", d.OrderID)
		}
		seen[d.OrderID] = true
	}
}

func ExampleEngine_Validate() {
	st := memory.New()
	eng := napstore.New(st)

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		panic(err)
	}
	defer eng.Stop()

	check, _ := eng.Validate(ctx, "XXXX-XXXX-XXXX-XXXX", "some-hardware-fingerprint")
	fmt.Println(check.Valid, check.Reason)
	// Output: false unknown key
}
