package economic

import "context"

// DebtorContactType describes the remote DebtorContact type
var DebtorContactType = &EntityType{
	Name:         "DebtorContact",
	Identity:     "id",
	RenderHandle: true,
	Schema: NewSchema(
		Int("id", "Id").Always(),
		Ref("debtorHandle", "DebtorHandle", "Number"),
		String("name", "Name").Always(),
		Int("number", "Number"),
		String("telephoneNumber", "TelephoneNumber"),
		String("email", "Email"),
		String("comments", "Comments"),
		String("externalID", "ExternalId"),
		Bool("isToReceiveEmailCopyOfOrder", "IsToReceiveEmailCopyOfOrder").Always().Default(false),
		Bool("isToReceiveEmailCopyOfInvoice", "IsToReceiveEmailCopyOfInvoice").Always().Default(false),
	),
}

// DebtorContact is a named person at a debtor
type DebtorContact struct {
	Entity
}

// NewDebtorContact returns an unpersisted contact without a session
func NewDebtorContact(values Values) *DebtorContact {
	c := &DebtorContact{}
	c.init(DebtorContactType, values)
	return c
}

func (c *DebtorContact) Name(ctx context.Context) (string, error) {
	return getString(ctx, &c.Entity, "name")
}
func (c *DebtorContact) SetName(name string) { c.set("name", name) }

func (c *DebtorContact) Email(ctx context.Context) (string, error) {
	return getString(ctx, &c.Entity, "email")
}
func (c *DebtorContact) SetEmail(email string) { c.set("email", email) }

func (c *DebtorContact) TelephoneNumber(ctx context.Context) (string, error) {
	return getString(ctx, &c.Entity, "telephoneNumber")
}
func (c *DebtorContact) SetTelephoneNumber(number string) { c.set("telephoneNumber", number) }

func (c *DebtorContact) Comments(ctx context.Context) (string, error) {
	return getString(ctx, &c.Entity, "comments")
}
func (c *DebtorContact) SetComments(comments string) { c.set("comments", comments) }

func (c *DebtorContact) DebtorHandle(ctx context.Context) (Handle, error) {
	return getHandle(ctx, &c.Entity, "debtorHandle")
}

// SetDebtor attaches the contact to a debtor
func (c *DebtorContact) SetDebtor(d *Debtor) { c.set("debtorHandle", d.Handle()) }

// DebtorContactProxy manages debtor contacts
type DebtorContactProxy struct {
	*Proxy[*DebtorContact]
}

func newDebtorContactProxy(s *Session) *DebtorContactProxy {
	return &DebtorContactProxy{Proxy: NewProxy(s, DebtorContactType, NewDebtorContact)}
}

// FindByName lists contacts with the given name as partial entities. No match
// gives an empty list.
func (p *DebtorContactProxy) FindByName(name string) *Action[*DebtorContact] {
	return NewAction(p, "FindByName", NewArgs("name", name), DebtorContactType.Name+"Handle", p.Stub)
}
