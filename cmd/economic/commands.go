package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/erp/economic/internal/application/invoicing"
	"github.com/erp/economic/internal/domain/economic"
	"go.uber.org/zap"
)

var errUsage = errors.New("usage")

type command struct {
	args int
	run  func(ctx context.Context, env *commandEnv, args []string) error
}

type commandEnv struct {
	session  *economic.Session
	invoices *invoicing.Service
	out      *tabwriter.Writer
}

var commands = map[string]command{
	"debtors":            {args: 0, run: listDebtors},
	"debtor":             {args: 1, run: showDebtor},
	"next-debtor-number": {args: 0, run: nextDebtorNumber},
	"cash-books":         {args: 0, run: listCashBooks},
	"contacts":           {args: 1, run: findContacts},
	"creditor-entries":   {args: 1, run: showCreditorEntries},
}

// run executes one CLI command and writes a table to w
func run(ctx context.Context, session *economic.Session, log *zap.Logger, args []string, w io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", errUsage)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	if len(args)-1 != cmd.args {
		return fmt.Errorf("%w: %s takes %d argument(s)", errUsage, args[0], cmd.args)
	}

	env := &commandEnv{
		session:  session,
		invoices: invoicing.NewService(session, log),
		out:      tabwriter.NewWriter(w, 0, 4, 2, ' ', 0),
	}
	if err := cmd.run(ctx, env, args[1:]); err != nil {
		return err
	}
	return env.out.Flush()
}

func parseNumber(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q is not a positive number", errUsage, s)
	}
	return n, nil
}

func listDebtors(ctx context.Context, env *commandEnv, _ []string) error {
	debtors, err := env.session.Debtors().All(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.out, "NUMBER\tNAME\tCITY\tBALANCE")
	for _, d := range debtors {
		name, _ := d.Name(ctx)
		city, _ := d.City(ctx)
		balance, _ := d.Balance(ctx)
		fmt.Fprintf(env.out, "%d\t%s\t%s\t%s\n", d.Number(), name, city, balance.StringFixed(2))
	}
	return nil
}

func showDebtor(ctx context.Context, env *commandEnv, args []string) error {
	number, err := parseNumber(args[0])
	if err != nil {
		return err
	}
	d, err := env.session.Debtors().FindByNumber(ctx, number)
	if err != nil {
		return err
	}
	name, _ := d.Name(ctx)
	address, _ := d.Address(ctx)
	postalCode, _ := d.PostalCode(ctx)
	city, _ := d.City(ctx)
	email, _ := d.Email(ctx)
	balance, _ := d.Balance(ctx)
	fmt.Fprintf(env.out, "Number\t%d\n", d.Number())
	fmt.Fprintf(env.out, "Name\t%s\n", name)
	fmt.Fprintf(env.out, "Address\t%s, %s %s\n", address, postalCode, city)
	fmt.Fprintf(env.out, "Email\t%s\n", email)
	fmt.Fprintf(env.out, "Balance\t%s\n", balance.StringFixed(2))

	contacts, err := d.Contacts().Call(ctx)
	if err != nil {
		return err
	}
	for _, c := range contacts {
		contactName, err := c.Name(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.out, "Contact\t%s\n", contactName)
	}
	return nil
}

func nextDebtorNumber(ctx context.Context, env *commandEnv, _ []string) error {
	n, err := env.session.Debtors().NextAvailableNumber(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.out, n)
	return nil
}

func listCashBooks(ctx context.Context, env *commandEnv, _ []string) error {
	books, err := env.session.CashBooks().All(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.out, "NUMBER\tNAME")
	for _, b := range books {
		name, _ := b.Name(ctx)
		fmt.Fprintf(env.out, "%d\t%s\n", b.Number(), name)
	}
	return nil
}

func findContacts(ctx context.Context, env *commandEnv, args []string) error {
	contacts, err := env.session.DebtorContacts().FindByName(args[0]).Call(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.out, "ID\tNAME\tEMAIL\tDEBTOR")
	for _, c := range contacts {
		name, err := c.Name(ctx)
		if err != nil {
			return err
		}
		email, _ := c.Email(ctx)
		debtor, _ := c.DebtorHandle(ctx)
		fmt.Fprintf(env.out, "%d\t%s\t%s\t%d\n", c.ID(), name, email, debtor.Number)
	}
	return nil
}

func showCreditorEntries(ctx context.Context, env *commandEnv, args []string) error {
	entries, err := env.invoices.OpenCreditorEntries(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(env.out, "SERIAL\tDATE\tTYPE\tAMOUNT\tREMAINDER")
	for _, e := range entries {
		date, _ := e.Date(ctx)
		kind, _ := e.EntryType(ctx)
		amount, _ := e.Amount(ctx)
		remainder, _ := e.Remainder(ctx)
		fmt.Fprintf(env.out, "%d\t%s\t%s\t%s\t%s\n",
			e.SerialNumber(), date.Format("2006-01-02"), kind, amount.StringFixed(2), remainder.StringFixed(2))
	}
	return nil
}
