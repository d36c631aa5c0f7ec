package domain

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"
)

const TableClients = "clients"

type Client struct {
	Audit
	Name          string
	Firstname     string
	Lastname      string
	Email         null.String
	PhoneNumber   null.String
	Remark        null.String
	Address       null.String
	AddressNumber null.String
	PostalCode    null.String
	City          null.String
	Archived      bool
}

// NewClient creates a new client with required fields
func NewClient(name, firstname, lastname string) *Client {
	return &Client{
		Audit:     newAudit(),
		Name:      strings.TrimSpace(name),
		Firstname: strings.TrimSpace(firstname),
		Lastname:  strings.TrimSpace(lastname),
	}
}

// Validate returns an error if the client is invalid
func (c *Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.Wrap(BadParameterError, "client name is required")
	}
	if strings.TrimSpace(c.Firstname) == "" || strings.TrimSpace(c.Lastname) == "" {
		return errors.Wrap(BadParameterError, "client firstname and lastname are required")
	}
	return nil
}

// ContactName is the person invoices are addressed to
func (c *Client) ContactName() string {
	return strings.TrimSpace(c.Firstname + " " + c.Lastname)
}

func (c *Client) HistoryTable() string { return TableClients }

func (c *Client) HistoryValues() map[string]any {
	v := c.Audit.values()
	v["name"] = c.Name
	v["firstname"] = c.Firstname
	v["lastname"] = c.Lastname
	v["email"] = c.Email.Ptr()
	v["phoneNumber"] = c.PhoneNumber.Ptr()
	v["remark"] = c.Remark.Ptr()
	v["address"] = c.Address.Ptr()
	v["addressNumber"] = c.AddressNumber.Ptr()
	v["postalCode"] = c.PostalCode.Ptr()
	v["city"] = c.City.Ptr()
	v["archived"] = c.Archived
	return v
}
