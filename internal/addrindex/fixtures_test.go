package addrindex

import (
	"github.com/sells-group/geotarget/internal/model"
)

func fixtureRows() []model.AddressMapping {
	return []model.AddressMapping{
		{PostalCode: "90210", City: "Beverly Hills", County: "Los Angeles County", Region: "CA", Country: "US", CriteriaID: "9031313"},
		{PostalCode: "30096", City: "Duluth", County: "Gwinnett County", Region: "GA", Country: "US", CriteriaID: "1015254"},
		{PostalCode: "55802", City: "Duluth", County: "St. Louis County", Region: "MN", Country: "US", CriteriaID: "1020353"},
		{PostalCode: "30303", City: "Atlanta", County: "Fulton County", Region: "GA", Country: "US", CriteriaID: "1015116"},
		{PostalCode: "02108", City: "Boston", County: "Suffolk County", Region: "MA", Country: "US", CriteriaID: "1018127"},
		{PostalCode: "02139", City: "Cambridge", County: "Middlesex County", Region: "MA", Country: "US", CriteriaID: "1018150"},
		{PostalCode: "01608", City: "Worcester", County: "Worcester County", Region: "MA", Country: "US", CriteriaID: "1018563"},
		{PostalCode: "10001", City: "New York", County: "New York County", Region: "NY", Country: "US"},
	}
}
