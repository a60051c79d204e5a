package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bancoatlas/backoffice/internal/models"
)

// MongoMovementStore keeps movements in the schema-flexible document store.
// Amounts travel as strings so no decimal ever touches a float on the wire.
type MongoMovementStore struct {
	collection *mongo.Collection
}

func NewMongoMovementStore(db *mongo.Database) *MongoMovementStore {
	return &MongoMovementStore{collection: db.Collection("movimientos")}
}

type movementDoc struct {
	GUID       string    `bson:"guid"`
	ClientGUID string    `bson:"client_guid"`
	Kind       string    `bson:"kind"`
	CreatedAt  time.Time `bson:"created_at"`

	Domiciliation *domiciliationChargeDoc `bson:"domiciliation,omitempty"`
	Payroll       *payrollIncomeDoc       `bson:"payroll,omitempty"`
	Card          *cardPaymentDoc         `bson:"card,omitempty"`
	Transfer      *transferLegDoc         `bson:"transfer,omitempty"`
}

type domiciliationChargeDoc struct {
	MandateGUID string `bson:"mandate_guid"`
	Creditor    string `bson:"creditor"`
	CompanyIBAN string `bson:"company_iban"`
	ClientIBAN  string `bson:"client_iban"`
	Amount      string `bson:"amount"`
}

type payrollIncomeDoc struct {
	Company     string `bson:"company"`
	CIF         string `bson:"cif"`
	CompanyIBAN string `bson:"company_iban"`
	ClientIBAN  string `bson:"client_iban"`
	Amount      string `bson:"amount"`
}

type cardPaymentDoc struct {
	Merchant   string `bson:"merchant"`
	CardNumber string `bson:"card_number"`
	Amount     string `bson:"amount"`
}

type transferLegDoc struct {
	OriginIBAN      string `bson:"origin_iban"`
	DestinationIBAN string `bson:"destination_iban"`
	Beneficiary     string `bson:"beneficiary"`
	Amount          string `bson:"amount"`
	Revoked         bool   `bson:"revoked"`
}

func toDoc(m *models.Movement) *movementDoc {
	doc := &movementDoc{
		GUID:       m.GUID,
		ClientGUID: m.ClientGUID,
		Kind:       string(m.Kind),
		CreatedAt:  m.CreatedAt,
	}
	if m.Domiciliation != nil {
		doc.Domiciliation = &domiciliationChargeDoc{
			MandateGUID: m.Domiciliation.MandateGUID,
			Creditor:    m.Domiciliation.Creditor,
			CompanyIBAN: m.Domiciliation.CompanyIBAN,
			ClientIBAN:  m.Domiciliation.ClientIBAN,
			Amount:      m.Domiciliation.Amount.String(),
		}
	}
	if m.Payroll != nil {
		doc.Payroll = &payrollIncomeDoc{
			Company:     m.Payroll.Company,
			CIF:         m.Payroll.CIF,
			CompanyIBAN: m.Payroll.CompanyIBAN,
			ClientIBAN:  m.Payroll.ClientIBAN,
			Amount:      m.Payroll.Amount.String(),
		}
	}
	if m.Card != nil {
		doc.Card = &cardPaymentDoc{
			Merchant:   m.Card.Merchant,
			CardNumber: m.Card.CardNumber,
			Amount:     m.Card.Amount.String(),
		}
	}
	if m.Transfer != nil {
		doc.Transfer = &transferLegDoc{
			OriginIBAN:      m.Transfer.OriginIBAN,
			DestinationIBAN: m.Transfer.DestinationIBAN,
			Beneficiary:     m.Transfer.Beneficiary,
			Amount:          m.Transfer.Amount.String(),
			Revoked:         m.Transfer.Revoked,
		}
	}
	return doc
}

func fromDoc(doc *movementDoc) (*models.Movement, error) {
	m := &models.Movement{
		GUID:       doc.GUID,
		ClientGUID: doc.ClientGUID,
		Kind:       models.MovementKind(doc.Kind),
		CreatedAt:  doc.CreatedAt,
	}
	parse := func(s string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("movement %s holds a malformed amount %q: %w", doc.GUID, s, err)
		}
		return d, nil
	}

	var err error
	if doc.Domiciliation != nil {
		charge := models.DomiciliationCharge{
			MandateGUID: doc.Domiciliation.MandateGUID,
			Creditor:    doc.Domiciliation.Creditor,
			CompanyIBAN: doc.Domiciliation.CompanyIBAN,
			ClientIBAN:  doc.Domiciliation.ClientIBAN,
		}
		if charge.Amount, err = parse(doc.Domiciliation.Amount); err != nil {
			return nil, err
		}
		m.Domiciliation = &charge
	}
	if doc.Payroll != nil {
		income := models.PayrollIncome{
			Company:     doc.Payroll.Company,
			CIF:         doc.Payroll.CIF,
			CompanyIBAN: doc.Payroll.CompanyIBAN,
			ClientIBAN:  doc.Payroll.ClientIBAN,
		}
		if income.Amount, err = parse(doc.Payroll.Amount); err != nil {
			return nil, err
		}
		m.Payroll = &income
	}
	if doc.Card != nil {
		payment := models.CardPayment{
			Merchant:   doc.Card.Merchant,
			CardNumber: doc.Card.CardNumber,
		}
		if payment.Amount, err = parse(doc.Card.Amount); err != nil {
			return nil, err
		}
		m.Card = &payment
	}
	if doc.Transfer != nil {
		leg := models.TransferLeg{
			OriginIBAN:      doc.Transfer.OriginIBAN,
			DestinationIBAN: doc.Transfer.DestinationIBAN,
			Beneficiary:     doc.Transfer.Beneficiary,
			Revoked:         doc.Transfer.Revoked,
		}
		if leg.Amount, err = parse(doc.Transfer.Amount); err != nil {
			return nil, err
		}
		m.Transfer = &leg
	}
	return m, nil
}

func (s *MongoMovementStore) Insert(ctx context.Context, m *models.Movement) error {
	_, err := s.collection.InsertOne(ctx, toDoc(m))
	return err
}

func (s *MongoMovementStore) FindByGUID(ctx context.Context, guid string) (*models.Movement, error) {
	var doc movementDoc
	err := s.collection.FindOne(ctx, bson.M{"guid": guid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromDoc(&doc)
}

func (s *MongoMovementStore) FindByClient(ctx context.Context, clientGUID string) ([]models.Movement, error) {
	return s.find(ctx, bson.M{"client_guid": clientGUID})
}

func (s *MongoMovementStore) FindAll(ctx context.Context) ([]models.Movement, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoMovementStore) find(ctx context.Context, filter bson.M) ([]models.Movement, error) {
	cursor, err := s.collection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	movements := []models.Movement{}
	for cursor.Next(ctx) {
		var doc movementDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		m, err := fromDoc(&doc)
		if err != nil {
			return nil, err
		}
		movements = append(movements, *m)
	}
	return movements, cursor.Err()
}

func (s *MongoMovementStore) Replace(ctx context.Context, guid string, m *models.Movement) error {
	result, err := s.collection.ReplaceOne(ctx, bson.M{"guid": guid}, toDoc(m))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrMovementNotFound
	}
	return nil
}
