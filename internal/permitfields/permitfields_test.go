package permitfields

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

const samplePayload = `BUSINESS NAME: CHRISTIAN WATER REFILLING STATION
SCOPE: CITY/MUNICIPALITY
BUSINESS OWNER: JEFFREY VILLAR BERNABE
VALIDITY DATE: 12 January 2022 to 12 January 2027
BUSINESS NAME NO.: 3434737`

type ParseSuite struct {
	suite.Suite
}

func TestParseSuite(t *testing.T) {
	suite.Run(t, new(ParseSuite))
}

func (s *ParseSuite) TestParseQR() {
	s.Run("parses all fields from a standard payload", func() {
		fields := ParseQR(samplePayload)
		s.Equal("CHRISTIAN WATER REFILLING STATION", fields.BusinessName)
		s.Equal("JEFFREY VILLAR BERNABE", fields.BusinessOwner)
		s.Equal("12 January 2022 to 12 January 2027", fields.ValidityDate)
		s.Equal("3434737", fields.BusinessNumber)
		s.Equal("CITY/MUNICIPALITY", fields.Scope)
		s.Equal(samplePayload, fields.RawText)
	})

	s.Run("number line never bleeds into the name field", func() {
		fields := ParseQR("BUSINESS NAME NO.: 12345")
		s.Empty(fields.BusinessName)
		s.Equal("12345", fields.BusinessNumber)
	})

	s.Run("accepts BUSINESS NO. label variant", func() {
		fields := ParseQR("BUSINESS NO.: 98765")
		s.Equal("98765", fields.BusinessNumber)
	})

	s.Run("ignores unlabeled lines", func() {
		fields := ParseQR("DEPARTMENT OF TRADE AND INDUSTRY\n\nBUSINESS NAME: ACME")
		s.Equal("ACME", fields.BusinessName)
		s.Empty(fields.BusinessOwner)
	})

	s.Run("empty payload yields empty fields", func() {
		fields := ParseQR("")
		s.Empty(fields.BusinessName)
		s.Empty(fields.BusinessNumber)
	})
}

func (s *ParseSuite) TestParseOCR() {
	s.Run("matches labels loosely", func() {
		text := "This certifies the Business Name : SANTOS SARI-SARI STORE\n" +
			"Name of Proprietor: MARIA SANTOS\n" +
			"Valid until: 01 March 2027\n" +
			"Business Registration No: 555-123"
		fields := ParseOCR(text)
		s.Equal("SANTOS SARI-SARI STORE", fields.BusinessName)
		s.Equal("MARIA SANTOS", fields.BusinessOwner)
		s.Equal("01 March 2027", fields.ValidityDate)
		s.Equal("555-123", fields.BusinessNumber)
	})

	s.Run("discards noise-length captures", func() {
		fields := ParseOCR("BUSINESS NAME: ab\nVALIDITY: 2027")
		s.Empty(fields.BusinessName)
		s.Empty(fields.ValidityDate)
	})

	s.Run("skips lines without a colon", func() {
		fields := ParseOCR("BUSINESS NAME SANTOS STORE")
		s.Empty(fields.BusinessName)
	})
}

type CompareSuite struct {
	suite.Suite
}

func TestCompareSuite(t *testing.T) {
	suite.Run(t, new(CompareSuite))
}

func (s *CompareSuite) TestCompare() {
	s.Run("identical fields all match", func() {
		qr := ParseQR(samplePayload)
		cmp := Compare(qr, Fields{
			BusinessName:   "CHRISTIAN WATER REFILLING STATION",
			BusinessOwner:  "JEFFREY VILLAR BERNABE",
			ValidityDate:   "12 January 2022 to 12 January 2027",
			BusinessNumber: "3434737",
		})
		s.True(cmp.BusinessNameMatch)
		s.True(cmp.BusinessOwnerMatch)
		s.True(cmp.ValidityDateMatch)
		s.True(cmp.BusinessNumberMatch)
		s.InDelta(1.0, cmp.Confidence, 1e-9)
		s.Empty(cmp.Mismatches)
	})

	s.Run("word order differences still match", func() {
		cmp := Compare(
			Fields{BusinessOwner: "JEFFREY VILLAR BERNABE"},
			Fields{BusinessOwner: "BERNABE, JEFFREY VILLAR"},
		)
		s.True(cmp.BusinessOwnerMatch)
		s.InDelta(1.0, cmp.Confidence, 1e-9)
	})

	s.Run("different business numbers mismatch exactly", func() {
		cmp := Compare(
			Fields{BusinessNumber: "3434737"},
			Fields{BusinessNumber: "3434738"},
		)
		s.False(cmp.BusinessNumberMatch)
		s.Zero(cmp.Confidence)
		s.Len(cmp.Mismatches, 1)
		s.Contains(cmp.Mismatches[0], "Business number mismatch")
	})

	s.Run("formatted number differs from its bare form", func() {
		cmp := Compare(
			Fields{BusinessNumber: "3434737"},
			Fields{BusinessNumber: "3-434-737"},
		)
		s.False(cmp.BusinessNumberMatch)
		s.Len(cmp.Mismatches, 1)
		s.Contains(cmp.Mismatches[0], "Business number mismatch")
	})

	s.Run("surrounding whitespace on numbers is trimmed", func() {
		cmp := Compare(
			Fields{BusinessNumber: "  3434737 "},
			Fields{BusinessNumber: "3434737"},
		)
		s.True(cmp.BusinessNumberMatch)
	})

	s.Run("only shared fields count toward confidence", func() {
		cmp := Compare(
			Fields{BusinessName: "ACME TRADING", ValidityDate: "12 January 2027"},
			Fields{BusinessName: "ACME TRADING"},
		)
		s.True(cmp.BusinessNameMatch)
		s.False(cmp.ValidityDateMatch)
		s.InDelta(1.0, cmp.Confidence, 1e-9)
	})

	s.Run("no comparable fields yields zero confidence", func() {
		cmp := Compare(Fields{BusinessName: "ACME"}, Fields{BusinessOwner: "JUAN"})
		s.Zero(cmp.Confidence)
		s.Empty(cmp.Mismatches)
	})

	s.Run("unrelated names produce a mismatch entry", func() {
		cmp := Compare(
			Fields{BusinessName: "CHRISTIAN WATER REFILLING STATION"},
			Fields{BusinessName: "QUICK MART GROCERY"},
		)
		s.False(cmp.BusinessNameMatch)
		s.Len(cmp.Mismatches, 1)
		s.Contains(cmp.Mismatches[0], "QR='CHRISTIAN WATER REFILLING STATION'")
	})
}
