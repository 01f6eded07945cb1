package server

import (
	"net/http"
)

// handleEditorPage serves the single-page tariff editor. The page is
// deliberately framework-free: the grid fragments come pre-rendered
// from the API and the script below only forwards gestures and form
// edits, then swaps in whatever the server returns.
func (s *Server) handleEditorPage(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, editorPage)
}

const editorPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Tariff Builder</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #f4f5f7; color: #222; }
header { background: #1e3a5f; color: #fff; padding: 10px 20px; display: flex; align-items: center; gap: 16px; }
header h1 { font-size: 18px; margin: 0; flex: 1; }
header button { background: #2d5a8e; color: #fff; border: none; border-radius: 4px; padding: 7px 14px; cursor: pointer; }
header button:hover { background: #3a6ea5; }
main { max-width: 1280px; margin: 0 auto; padding: 16px; }
section.card { background: #fff; border-radius: 6px; box-shadow: 0 1px 3px rgba(0,0,0,.12); padding: 16px; margin-bottom: 16px; }
section.card h2 { font-size: 15px; margin: 0 0 12px; }
.frow { display: flex; flex-wrap: wrap; gap: 12px; margin-bottom: 8px; }
.frow label { display: flex; flex-direction: column; font-size: 12px; gap: 3px; min-width: 160px; }
.frow input, .frow select, .frow textarea { padding: 5px 7px; border: 1px solid #bbb; border-radius: 4px; font-size: 13px; }
.frow input.err { border-color: #c0392b; background: #fdecea; }
.ptable { border-collapse: collapse; font-size: 13px; }
.ptable th, .ptable td { padding: 3px 6px; text-align: left; }
.ptable input { width: 90px; padding: 4px 6px; border: 1px solid #bbb; border-radius: 4px; }
.ptable input.plabel { width: 140px; }
.swatch { display: inline-block; width: 16px; height: 16px; border-radius: 3px; vertical-align: middle; }
.grid-box { margin-top: 10px; }
.grid-title { font-weight: 600; margin-bottom: 6px; }
.grid-periods { display: flex; flex-wrap: wrap; gap: 6px; margin-bottom: 8px; }
.pbtn { border: 2px solid transparent; border-radius: 4px; padding: 4px 8px; cursor: pointer; font-size: 12px; display: flex; flex-direction: column; }
.pbtn.sel { border-color: #000; }
.grid-rows { display: inline-block; user-select: none; }
.grid-row { display: flex; }
.mlabel { width: 36px; font-size: 11px; line-height: 20px; }
.hlabel { width: 34px; font-size: 9px; text-align: center; }
.cell { width: 34px; height: 20px; border: 1px solid rgba(0,0,0,.15); font-size: 8px; text-align: center; line-height: 20px; cursor: crosshair; overflow: hidden; }
.grid-fills { margin-top: 8px; display: flex; gap: 6px; flex-wrap: wrap; }
.fbtn { background: #eee; border: 1px solid #bbb; border-radius: 4px; padding: 4px 10px; cursor: pointer; font-size: 12px; }
.grid-hint { font-size: 11px; color: #666; margin-top: 6px; }
#issues li.error { color: #c0392b; }
#issues li.warn { color: #b9770e; }
#issues li.info { color: #555; }
#toast { position: fixed; bottom: 16px; right: 16px; background: #c0392b; color: #fff; padding: 8px 14px; border-radius: 4px; display: none; }
</style>
</head>
<body>
<header>
<h1>Tariff Builder</h1>
<button id="btn-import">Import JSON</button>
<button id="btn-import-url">Import from URL</button>
<button id="btn-export">Export JSON</button>
<button id="btn-reset">Start Over</button>
<input type="file" id="import-file" accept="application/json" style="display:none">
</header>
<main>
<section class="card" id="basic-card">
<h2>Basic Info</h2>
<div class="frow">
<label>Utility Name<input data-basic="utility"></label>
<label>Rate Name<input data-basic="name"></label>
<label>Sector<select data-basic="sector"></select></label>
<label>Service Type<select data-basic="serviceType"></select></label>
<label>Start Date<input type="date" data-basic="startDate"></label>
<label>EIA ID<input data-basic="eiaid"></label>
</div>
<div class="frow">
<label>Description<textarea data-basic="description" rows="2" cols="48"></textarea></label>
<label>Source URL<input data-basic="source" size="36"></label>
<label>Voltage Category<select data-basic="voltageCategory"></select></label>
<label>Phase Wiring<select data-basic="phaseWiring"></select></label>
<label>Peak kW Min<input data-basic="peakKWCapacityMin"></label>
<label>Peak kW Max<input data-basic="peakKWCapacityMax"></label>
</div>
</section>

<section class="card">
<h2>Energy Rates ($/kWh)</h2>
<div class="frow"><label>Number of Periods<select id="energy-count"></select></label></div>
<div id="energy-periods"></div>
<div id="grid-slot-energy_weekday"></div>
<div id="grid-slot-energy_weekend"></div>
</section>

<section class="card">
<h2>Demand Charges</h2>
<div class="frow">
<label><input type="checkbox" id="demand-enabled"> Enable TOU Demand Charges</label>
<label>Demand Unit<select id="demand-unit"></select></label>
<label>Demand Window (min)<input id="demand-window"></label>
<label>Reactive Power Charge<input id="demand-reactive"></label>
</div>
<div id="demand-section" style="display:none">
<div class="frow"><label>Number of Periods<select id="demand-count"></select></label></div>
<div id="demand-periods"></div>
<div id="grid-slot-demand_weekday"></div>
<div id="grid-slot-demand_weekend"></div>
</div>
<div class="frow" style="margin-top:10px">
<label><input type="checkbox" id="flat-enabled"> Enable Flat (Seasonal) Demand Charges</label>
</div>
<div id="flat-section" style="display:none">
<div class="frow"><label>Number of Seasons<select id="flat-count"></select></label></div>
<div id="flat-periods"></div>
<div id="flat-months" class="frow"></div>
</div>
</section>

<section class="card">
<h2>Fixed Charges</h2>
<div class="frow">
<label>Fixed Charge (first meter)<input id="fixed-charge"></label>
<label>Units<input id="fixed-units"></label>
<label>Minimum Monthly Charge<input id="fixed-minmonthly"></label>
<label>Annual Minimum Charge<input id="fixed-annualmin"></label>
</div>
</section>

<section class="card">
<h2>Validation</h2>
<ul id="issues"></ul>
</section>
</main>
<div id="toast"></div>
<script>
(() => {
const SECTORS = ["Commercial","Residential","Industrial","Lighting"];
const SERVICE_TYPES = ["Bundled","Delivery","Energy"];
const VOLTAGES = ["","Secondary","Primary","Transmission"];
const PHASES = ["","Single Phase","3-Phase","Single and 3-Phase"];
const DEMAND_UNITS = ["kW","hp","kVA","kW daily","hp daily","kVA daily"];
const MONTHS = ["Jan","Feb","Mar","Apr","May","Jun","Jul","Aug","Sep","Oct","Nov","Dec"];
const GRIDS = ["energy_weekday","energy_weekend","demand_weekday","demand_weekend"];

let state = null;

function toast(msg) {
  const el = document.getElementById("toast");
  el.textContent = msg;
  el.style.display = "block";
  clearTimeout(el._t);
  el._t = setTimeout(() => el.style.display = "none", 4000);
}

async function api(method, path, body) {
  const opts = {method, headers: {"Content-Type": "application/json"}};
  if (body !== undefined) opts.body = JSON.stringify(body);
  const resp = await fetch(path, opts);
  if (!resp.ok) {
    let msg = "request failed";
    try { msg = (await resp.json()).error || msg; } catch (e) {}
    throw new Error(msg);
  }
  return resp;
}

async function apiDraft(method, path, body) {
  const resp = await api(method, path, body);
  state = await resp.json();
  renderForm();
}

function fillSelect(sel, options, value) {
  sel.innerHTML = "";
  for (const o of options) {
    const opt = document.createElement("option");
    opt.value = o;
    opt.textContent = o === "" ? "(none)" : o;
    sel.appendChild(opt);
  }
  sel.value = value;
}

function numText(v) { return v === null || v === undefined ? "" : String(v); }

function renderPeriodTable(slot, category, periods) {
  const rows = periods.map((p, i) =>
    '<tr><td><span class="swatch" style="background:' + p.color + '"></span></td>' +
    '<td><input class="plabel" data-cat="' + category + '" data-idx="' + i + '" data-field="label" value="' + p.label.replace(/"/g, "&quot;") + '"></td>' +
    '<td><input data-cat="' + category + '" data-idx="' + i + '" data-field="rate" value="' + p.rate + '"></td>' +
    '<td><input data-cat="' + category + '" data-idx="' + i + '" data-field="adj" value="' + p.adj + '"></td>' +
    '<td>$' + (p.rate + p.adj).toFixed(4) + '</td></tr>').join("");
  document.getElementById(slot).innerHTML =
    '<table class="ptable"><tr><th></th><th>Label</th><th>Base Rate</th><th>Adjustment</th><th>Total</th></tr>' + rows + '</table>';
}

function renderCountSelect(id, category, count, max) {
  const sel = document.getElementById(id);
  fillSelect(sel, Array.from({length: max}, (_, i) => String(i + 1)), String(count));
  sel.onchange = () => apiDraft("POST", "/api/periods/" + category, {count: +sel.value})
    .then(refreshGrids).catch(e => { toast(e.message); renderForm(); });
}

function renderForm() {
  if (!state) return;
  for (const el of document.querySelectorAll("[data-basic]")) {
    const f = el.dataset.basic;
    if (el.tagName === "SELECT") {
      const opts = {sector: SECTORS, serviceType: SERVICE_TYPES, voltageCategory: VOLTAGES, phaseWiring: PHASES}[f];
      fillSelect(el, opts, state[f] || "");
    } else if (["eiaid","peakKWCapacityMin","peakKWCapacityMax"].includes(f)) {
      el.value = numText(state[f]);
    } else {
      el.value = state[f] || "";
    }
  }

  renderCountSelect("energy-count", "energy", state.energyPeriods.length, 12);
  renderPeriodTable("energy-periods", "energy", state.energyPeriods);

  document.getElementById("demand-enabled").checked = state.demandEnabled;
  document.getElementById("demand-section").style.display = state.demandEnabled ? "" : "none";
  fillSelect(document.getElementById("demand-unit"), DEMAND_UNITS, state.demandRateUnit);
  document.getElementById("demand-window").value = numText(state.demandWindow);
  document.getElementById("demand-reactive").value = numText(state.demandReactive);
  if (state.demandEnabled) {
    renderCountSelect("demand-count", "demand", state.demandPeriods.length, 12);
    renderPeriodTable("demand-periods", "demand", state.demandPeriods);
  }

  document.getElementById("flat-enabled").checked = state.flatEnabled;
  document.getElementById("flat-section").style.display = state.flatEnabled ? "" : "none";
  if (state.flatEnabled) {
    renderCountSelect("flat-count", "flat", state.flatPeriods.length, 6);
    renderPeriodTable("flat-periods", "flat", state.flatPeriods);
    const labels = state.flatPeriods.map(p => p.label);
    document.getElementById("flat-months").innerHTML = MONTHS.map((m, i) =>
      '<label>' + m + '<select data-flat-month="' + i + '">' +
      labels.map((l, j) => '<option value="' + j + '"' + (state.flatMonths[i] === j ? ' selected' : '') + '>' + l + '</option>').join("") +
      '</select></label>').join("");
    for (const sel of document.querySelectorAll("[data-flat-month]")) {
      sel.onchange = () => apiDraft("POST", "/api/flat", {month: +sel.dataset.flatMonth, period: +sel.value})
        .catch(e => toast(e.message));
    }
  }

  document.getElementById("fixed-charge").value = numText(state.fixedCharge);
  document.getElementById("fixed-units").value = state.fixedChargeUnits || "";
  document.getElementById("fixed-minmonthly").value = numText(state.minMonthlyCharge);
  document.getElementById("fixed-annualmin").value = numText(state.annualMinCharge);

  refreshIssues();
}

async function refreshIssues() {
  const resp = await api("GET", "/api/validate");
  const v = await resp.json();
  document.getElementById("issues").innerHTML = (v.issues || []).map(i =>
    '<li class="' + i.level + '">' + i.msg + '</li>').join("") || "<li>No issues.</li>";
}

async function refreshGrid(gridID) {
  const slot = document.getElementById("grid-slot-" + gridID);
  if (!slot) return;
  if (gridID.startsWith("demand") && !state.demandEnabled) { slot.innerHTML = ""; return; }
  const resp = await api("GET", "/api/grid/" + gridID);
  slot.innerHTML = await resp.text();
  wireGrid(slot, gridID);
}

async function refreshGrids() {
  for (const g of GRIDS) await refreshGrid(g);
}

function wireGrid(slot, gridID) {
  const swap = async (p) => {
    const resp = await p;
    slot.innerHTML = await resp.text();
    wireGrid(slot, gridID);
  };
  for (const btn of slot.querySelectorAll(".pbtn")) {
    btn.onclick = () => swap(api("POST", "/api/grid/" + gridID + "/select", {period: +btn.dataset.p})).catch(e => toast(e.message));
  }
  for (const btn of slot.querySelectorAll(".fbtn")) {
    const action = {"fill-all": "fill/all", "fill-row": "fill/row", "fill-column": "fill/column", "clear": "clear", "copy": "copy"}[btn.dataset.action];
    btn.onclick = () => swap(api("POST", "/api/grid/" + gridID + "/" + action, {})).catch(e => toast(e.message));
  }

  // Drag painting: collect cells in traversal order, send on mouseup.
  let drag = null;
  const cellAt = el => el.classList && el.classList.contains("cell") ?
    {month: +el.dataset.m, hour: +el.dataset.h} : null;
  slot.onmousedown = e => {
    const c = cellAt(e.target);
    if (!c) return;
    e.preventDefault();
    drag = [c];
  };
  slot.onmouseover = e => {
    if (!drag) return;
    const c = cellAt(e.target);
    if (c && !(drag.length && drag[drag.length-1].month === c.month && drag[drag.length-1].hour === c.hour)) drag.push(c);
  };
  document.onmouseup = () => {
    if (!drag) return;
    const cells = drag;
    drag = null;
    swap(api("POST", "/api/grid/" + gridID + "/paint", {cells})).catch(e => toast(e.message));
  };
}

function basicPayload(el) {
  return {[el.dataset.basic]: el.value};
}

function wireForm() {
  for (const el of document.querySelectorAll("[data-basic]")) {
    el.onchange = () => apiDraft("POST", "/api/basic", basicPayload(el))
      .then(() => el.classList.remove("err"))
      .catch(e => { el.classList.add("err"); toast(e.message); });
  }
  document.body.addEventListener("change", e => {
    const el = e.target;
    if (el.dataset && el.dataset.cat !== undefined && el.dataset.field) {
      apiDraft("POST", "/api/periods/" + el.dataset.cat, {index: +el.dataset.idx, field: el.dataset.field, value: el.value})
        .then(() => { el.classList.remove("err"); refreshGrids(); })
        .catch(err => { el.classList.add("err"); toast(err.message); });
    }
  });

  document.getElementById("demand-enabled").onchange = e =>
    apiDraft("POST", "/api/demand", {enabled: e.target.checked}).then(refreshGrids).catch(err => toast(err.message));
  document.getElementById("demand-unit").onchange = e =>
    apiDraft("POST", "/api/demand", {rateUnit: e.target.value}).then(refreshGrids).catch(err => toast(err.message));
  document.getElementById("demand-window").onchange = e =>
    apiDraft("POST", "/api/demand", {window: e.target.value}).catch(err => toast(err.message));
  document.getElementById("demand-reactive").onchange = e =>
    apiDraft("POST", "/api/demand", {reactive: e.target.value}).catch(err => toast(err.message));
  document.getElementById("flat-enabled").onchange = e =>
    apiDraft("POST", "/api/flat", {enabled: e.target.checked}).catch(err => toast(err.message));

  document.getElementById("fixed-charge").onchange = e =>
    apiDraft("POST", "/api/fixed", {fixedCharge: e.target.value}).catch(err => toast(err.message));
  document.getElementById("fixed-units").onchange = e =>
    apiDraft("POST", "/api/fixed", {units: e.target.value}).catch(err => toast(err.message));
  document.getElementById("fixed-minmonthly").onchange = e =>
    apiDraft("POST", "/api/fixed", {minMonthly: e.target.value}).catch(err => toast(err.message));
  document.getElementById("fixed-annualmin").onchange = e =>
    apiDraft("POST", "/api/fixed", {annualMin: e.target.value}).catch(err => toast(err.message));

  document.getElementById("btn-reset").onclick = () => {
    if (!confirm("Start over? This discards the current draft.")) return;
    apiDraft("POST", "/api/reset", {}).then(refreshGrids).catch(e => toast(e.message));
  };
  document.getElementById("btn-export").onclick = () => { window.location = "/api/export"; };
  document.getElementById("btn-import").onclick = () => document.getElementById("import-file").click();
  document.getElementById("import-file").onchange = async e => {
    const file = e.target.files[0];
    if (!file) return;
    try {
      const text = await file.text();
      await apiDraft("POST", "/api/import", JSON.parse(text));
      await refreshGrids();
    } catch (err) { toast(err.message); }
    e.target.value = "";
  };
  document.getElementById("btn-import-url").onclick = async () => {
    const url = prompt("Tariff document URL:");
    if (!url) return;
    try {
      await apiDraft("POST", "/api/import/url", {url});
      await refreshGrids();
    } catch (err) { toast(err.message); }
  };
}

apiDraft("GET", "/api/draft").then(() => { wireForm(); refreshGrids(); }).catch(e => toast(e.message));
})();
</script>
</body>
</html>
`
