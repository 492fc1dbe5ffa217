// internal/tests/lifecycle_test.go
package tests

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/agriqcert/agriqcert-backend/internal/broker"
)

type batchBody struct {
	ID                  string  `json:"id"`
	ProductType         string  `json:"productType"`
	CertificationStatus string  `json:"certificationStatus"`
	OrderStatus         string  `json:"orderStatus"`
	OrderedBy           *string `json:"orderedBy"`
	Exporter            struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"exporter"`
	Attachments []struct {
		FileURL  string `json:"fileUrl"`
		FileType string `json:"fileType"`
	} `json:"attachments"`
}

type messageBody struct {
	Msg    string `json:"msg"`
	Status string `json:"status"`
}

type LifecycleTestSuite struct {
	suite.Suite
	server   *testServer
	exporter authBody
	qa       authBody
	importer authBody
	admin    authBody
}

func (suite *LifecycleTestSuite) SetupTest() {
	t := suite.T()
	suite.server = newTestServer(t)
	suite.exporter = suite.server.login(t, "exporter1", seedPassword)
	suite.qa = suite.server.login(t, "qa_agency1", seedPassword)
	suite.importer = suite.server.login(t, "importer1", seedPassword)
	suite.admin = suite.server.login(t, "admin", "admin-pass")
}

func (suite *LifecycleTestSuite) submitBatch(files ...string) batchBody {
	t := suite.T()
	w := suite.server.createBatch(t, suite.exporter.Token, map[string]string{
		"productType": "Basmati Rice",
		"quantity":    "500 kg",
		"location":    "Karnal",
		"destination": "Rotterdam",
	}, files...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var batch batchBody
	decode(t, w, &batch)
	return batch
}

func (suite *LifecycleTestSuite) inspect(batchID, result string) (int, messageBody) {
	w := suite.server.do(http.MethodPost, "/api/inspections", suite.qa.Token, map[string]string{
		"batchId":       batchID,
		"moisture":      "11%",
		"pesticide":     "None detected",
		"organicStatus": "Organic",
		"isoCode":       "ISO-22000",
		"result":        result,
	})

	var body messageBody
	if w.Code == http.StatusOK {
		decode(suite.T(), w, &body)
	}
	return w.Code, body
}

func (suite *LifecycleTestSuite) TestFullLifecycle() {
	t := suite.T()

	batch := suite.submitBatch("moisture-report.png")
	assert.Equal(t, "Submitted", batch.CertificationStatus)
	assert.Equal(t, "None", batch.OrderStatus)
	assert.Equal(t, suite.exporter.User.ID, batch.Exporter.ID)
	require.Len(t, batch.Attachments, 1)
	assert.Equal(t, "image/png", batch.Attachments[0].FileType)
	assert.True(t, strings.HasPrefix(batch.Attachments[0].FileURL, "/uploads/batches/"))

	file := suite.server.do(http.MethodGet, batch.Attachments[0].FileURL, "", nil)
	assert.Equal(t, http.StatusOK, file.Code)

	var pending []batchBody
	decode(t, suite.server.do(http.MethodGet, "/api/inspections/pending", suite.qa.Token, nil), &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, batch.ID, pending[0].ID)

	code, outcome := suite.inspect(batch.ID, "Pass")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, messageBody{Msg: "Inspection Submitted", Status: "Certified"}, outcome)

	var market []batchBody
	decode(t, suite.server.do(http.MethodGet, "/api/batches/market/all", "", nil), &market)
	require.Len(t, market, 1)
	assert.Equal(t, "exporter1", market[0].Exporter.Username)

	w := suite.server.do(http.MethodPut, "/api/batches/order/"+batch.ID, suite.importer.Token, map[string]string{
		"buyerId": suite.importer.User.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"msg":"Order Placed"}`, w.Body.String())

	var incoming []batchBody
	decode(t, suite.server.do(http.MethodGet, "/api/batches/orders/incoming/"+suite.exporter.User.ID, suite.exporter.Token, nil), &incoming)
	require.Len(t, incoming, 1)
	assert.Equal(t, "Pending", incoming[0].OrderStatus)

	w = suite.server.do(http.MethodPut, "/api/batches/ship/"+batch.ID, suite.exporter.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"msg":"Shipment Approved"}`, w.Body.String())

	var placed []batchBody
	decode(t, suite.server.do(http.MethodGet, "/api/batches/orders/placed/"+suite.importer.User.ID, suite.importer.Token, nil), &placed)
	require.Len(t, placed, 1)
	assert.Equal(t, "Shipped", placed[0].OrderStatus)

	var verified batchBody
	decode(t, suite.server.do(http.MethodGet, "/api/batches/verify/"+batch.ID, "", nil), &verified)
	assert.Equal(t, "Certified", verified.CertificationStatus)
	assert.Equal(t, "Shipped", verified.OrderStatus)
	assert.Equal(t, "exporter1", verified.Exporter.Username)
	require.NotNil(t, verified.OrderedBy)
	assert.Equal(t, suite.importer.User.ID, *verified.OrderedBy)

	assert.Equal(t, []broker.EventType{
		broker.EventBatchCreated,
		broker.EventBatchCertified,
		broker.EventOrderPlaced,
		broker.EventOrderShipped,
	}, suite.server.events.Types())
}

func (suite *LifecycleTestSuite) TestAuditFingerprintIgnoresOrderState() {
	t := suite.T()
	batch := suite.submitBatch()
	code, _ := suite.inspect(batch.ID, "Pass")
	require.Equal(t, http.StatusOK, code)

	var before struct {
		Fingerprint string        `json:"fingerprint"`
		Algorithm   string        `json:"algorithm"`
		Inspections []interface{} `json:"inspections"`
	}
	decode(t, suite.server.do(http.MethodGet, "/api/batches/verify/"+batch.ID+"/audit", "", nil), &before)
	assert.Len(t, before.Fingerprint, 64)
	assert.Equal(t, "sha256", before.Algorithm)
	assert.Len(t, before.Inspections, 1)

	w := suite.server.do(http.MethodPut, "/api/batches/order/"+batch.ID, suite.importer.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var after struct {
		Fingerprint string `json:"fingerprint"`
	}
	decode(t, suite.server.do(http.MethodGet, "/api/batches/verify/"+batch.ID+"/audit", "", nil), &after)
	assert.Equal(t, before.Fingerprint, after.Fingerprint)
}

func (suite *LifecycleTestSuite) TestFailedInspectionRejectsBatch() {
	batch := suite.submitBatch()

	code, outcome := suite.inspect(batch.ID, "Fail")
	suite.Require().Equal(http.StatusOK, code)
	suite.Equal("Rejected", outcome.Status)

	var market []batchBody
	decode(suite.T(), suite.server.do(http.MethodGet, "/api/batches/market/all", "", nil), &market)
	suite.Empty(market)

	w := suite.server.do(http.MethodPut, "/api/batches/order/"+batch.ID, suite.importer.Token, nil)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *LifecycleTestSuite) TestSecondInspectionConflicts() {
	batch := suite.submitBatch()

	code, _ := suite.inspect(batch.ID, "Pass")
	suite.Require().Equal(http.StatusOK, code)

	code, _ = suite.inspect(batch.ID, "Fail")
	suite.Equal(http.StatusConflict, code)

	var verified batchBody
	decode(suite.T(), suite.server.do(http.MethodGet, "/api/batches/verify/"+batch.ID, "", nil), &verified)
	suite.Equal("Certified", verified.CertificationStatus)
}

func (suite *LifecycleTestSuite) TestOrderRequiresCertification() {
	batch := suite.submitBatch()

	w := suite.server.do(http.MethodPut, "/api/batches/order/"+batch.ID, suite.importer.Token, nil)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *LifecycleTestSuite) TestDeclinedOrderCannotShip() {
	batch := suite.submitBatch()
	code, _ := suite.inspect(batch.ID, "Pass")
	suite.Require().Equal(http.StatusOK, code)

	w := suite.server.do(http.MethodPut, "/api/batches/order/"+batch.ID, suite.importer.Token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.server.do(http.MethodPut, "/api/batches/decline/"+batch.ID, suite.exporter.Token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"msg":"Order Declined"}`, w.Body.String())

	w = suite.server.do(http.MethodPut, "/api/batches/ship/"+batch.ID, suite.exporter.Token, nil)
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.server.do(http.MethodPut, "/api/batches/order/"+batch.ID, suite.importer.Token, nil)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *LifecycleTestSuite) TestRoleEnforcement() {
	t := suite.T()

	w := suite.server.createBatch(t, suite.importer.Token, map[string]string{
		"productType": "Wheat",
		"quantity":    "1 t",
		"location":    "Indore",
		"destination": "Dubai",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	batch := suite.submitBatch()

	w = suite.server.do(http.MethodPost, "/api/inspections", suite.exporter.Token, map[string]string{
		"batchId": batch.ID,
		"result":  "Pass",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = suite.server.do(http.MethodGet, "/api/batches/"+suite.exporter.User.ID, suite.importer.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = suite.server.do(http.MethodDelete, "/api/batches/"+batch.ID, suite.importer.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func (suite *LifecycleTestSuite) TestOtherExporterCannotTouchBatch() {
	t := suite.T()
	batch := suite.submitBatch()

	w := suite.server.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "exporter2",
		"password": "secret",
		"role":     "exporter",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var other authBody
	decode(t, w, &other)

	w = suite.server.do(http.MethodDelete, "/api/batches/"+batch.ID, other.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var own []batchBody
	decode(t, suite.server.do(http.MethodGet, "/api/batches/"+other.User.ID, other.Token, nil), &own)
	assert.Empty(t, own)
}

func (suite *LifecycleTestSuite) TestAdminActsOnBehalfOfParties() {
	t := suite.T()

	w := suite.server.createBatch(t, suite.admin.Token, map[string]string{
		"productType": "Turmeric",
		"quantity":    "200 kg",
		"location":    "Erode",
		"destination": "Hamburg",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = suite.server.createBatch(t, suite.admin.Token, map[string]string{
		"exporterId":  suite.exporter.User.ID,
		"productType": "Turmeric",
		"quantity":    "200 kg",
		"location":    "Erode",
		"destination": "Hamburg",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var batch batchBody
	decode(t, w, &batch)
	assert.Equal(t, suite.exporter.User.ID, batch.Exporter.ID)

	w = suite.server.do(http.MethodPost, "/api/inspections", suite.admin.Token, map[string]string{
		"batchId": batch.ID,
		"qaId":    suite.qa.User.ID,
		"result":  "Pass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = suite.server.do(http.MethodPut, "/api/batches/order/"+batch.ID, suite.admin.Token, map[string]string{
		"buyerId": suite.exporter.User.ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (suite *LifecycleTestSuite) TestCreateBatchValidation() {
	t := suite.T()

	w := suite.server.createBatch(t, suite.exporter.Token, map[string]string{
		"productType": "Rice",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = suite.server.createBatch(t, suite.exporter.Token, map[string]string{
		"productType": "Rice",
		"quantity":    "1 t",
		"location":    "Karnal",
		"destination": "Rotterdam",
	}, "a.png", "b.png", "c.png", "d.png")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = suite.server.createBatch(t, suite.exporter.Token, map[string]string{
		"productType": "Rice",
		"quantity":    "1 t",
		"location":    "Karnal",
		"destination": "Rotterdam",
	}, "script.exe")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (suite *LifecycleTestSuite) TestDeleteBatch() {
	t := suite.T()
	batch := suite.submitBatch()
	code, _ := suite.inspect(batch.ID, "Pass")
	require.Equal(t, http.StatusOK, code)

	w := suite.server.do(http.MethodDelete, "/api/batches/"+batch.ID, suite.exporter.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"msg":"Batch removed"}`, w.Body.String())

	w = suite.server.do(http.MethodGet, "/api/batches/verify/"+batch.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = suite.server.do(http.MethodDelete, "/api/batches/"+batch.ID, suite.exporter.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *LifecycleTestSuite) TestMalformedIDIsNotFound() {
	w := suite.server.do(http.MethodGet, "/api/batches/verify/not-a-uuid", "", nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.server.do(http.MethodPut, "/api/batches/ship/not-a-uuid", suite.exporter.Token, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *LifecycleTestSuite) TestHealthEndpoints() {
	suite.Equal(http.StatusOK, suite.server.do(http.MethodGet, "/health", "", nil).Code)

	ready := suite.server.do(http.MethodGet, "/ready", "", nil)
	suite.Equal(http.StatusOK, ready.Code)
	suite.Contains(ready.Body.String(), `"database":"ok"`)

	metrics := suite.server.do(http.MethodGet, "/metrics", "", nil)
	suite.Equal(http.StatusOK, metrics.Code)
	suite.Contains(metrics.Body.String(), "agriqcert_")
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleTestSuite))
}
