package forecast

import "slices"

// IDCols identify the entity a row refers to
var IDCols = []string{
	"STUDYREGIONID", "CONSTRAINTID", "INTERCONNECTORID", "DUID", "CONNECTIONPOINTID",
	"PARTICIPANTID", "EXPORTGENCONID", "IMPORTGENCONID", "REGIONID", "LINKID",
	"USE_ITERATION_ID", "RESERVELIMITID", "SCENARIO",
}

// TypeCols distinguish forecast variants for the same entity and time
var TypeCols = []string{
	"BIDTYPE", "RUNTYPE", "RUN_NO", "DEMAND_POE_TYPE", "AGGREGATION_PERIOD",
	"PERIOD_ENDING", "EFFECTIVEDATE", "VERSION_DATETIME",
}

// DatetimeCols hold AEMO datetimes
var DatetimeCols = []string{
	"DATETIME", "EFFECTIVEDATE", "INTERVAL_DATETIME", "RUN_DATETIME", "AUTHORISEDDATE",
	"LASTCHANGED", "VERSION_DATETIME", "DAY", "PUBLISH_DATETIME", "LATEST_OFFER_DATETIME",
	"STARTDATE", "ENDDATE", "PERIOD_ENDING", "GENCONID_EFFECTIVEDATE", "BIDSETTLEMENTDATE",
	"SETTLEMENTDATE", "OFFERDATE",
}

// ColumnKind classifies a column name
type ColumnKind string

const (
	// KindID marks an identifier column
	KindID ColumnKind = "id"
	// KindType marks a variant column
	KindType ColumnKind = "type"
	// KindDatetime marks a datetime column
	KindDatetime ColumnKind = "datetime"
	// KindValue is everything else
	KindValue ColumnKind = "value"
)

// Classify returns the kind of column name; datetime wins over type
// (EFFECTIVEDATE sits in both sets)
func Classify(name string) ColumnKind {
	switch {
	case IsDatetime(name):
		return KindDatetime
	case slices.Contains(IDCols, name):
		return KindID
	case slices.Contains(TypeCols, name):
		return KindType
	default:
		return KindValue
	}
}

// IsDatetime reports whether name is a known datetime column or the run time
// column of any type
func IsDatetime(name string) bool {
	if slices.Contains(DatetimeCols, name) {
		return true
	}
	for _, t := range types {
		if table[t].runCol == name {
			return true
		}
	}
	return false
}
